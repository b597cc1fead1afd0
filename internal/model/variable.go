package model

type Variable struct {
	Key   string
	Value string
}

// VariableTable is an ordered name→value table. Insertion order of the first
// occurrence is preserved; Set on an existing key overwrites the value in
// place. This gives environment values precedence over collection values
// while keeping output ordering stable.
type VariableTable struct {
	vars  []Variable
	index map[string]int
}

func NewVariableTable() *VariableTable {
	return &VariableTable{index: make(map[string]int)}
}

// Set upserts a key. Existing keys keep their original position.
func (t *VariableTable) Set(key, value string) {
	if i, ok := t.index[key]; ok {
		t.vars[i].Value = value
		return
	}
	t.index[key] = len(t.vars)
	t.vars = append(t.vars, Variable{Key: key, Value: value})
}

// Get returns the value for key and whether it is present.
func (t *VariableTable) Get(key string) (string, bool) {
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	return t.vars[i].Value, true
}

func (t *VariableTable) Len() int { return len(t.vars) }

// All returns the entries in insertion order. Callers must not mutate the
// returned slice.
func (t *VariableTable) All() []Variable { return t.vars }
