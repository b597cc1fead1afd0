package model

import "testing"

func TestVariableTable_SetKeepsFirstPosition(t *testing.T) {
	tbl := NewVariableTable()
	tbl.Set("host", "example.com")
	tbl.Set("token", "abc")
	tbl.Set("host", "staging.example.com") // override, same slot

	if got := tbl.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	all := tbl.All()
	if all[0].Key != "host" || all[0].Value != "staging.example.com" {
		t.Fatalf("all[0] = %+v, want host=staging.example.com", all[0])
	}
	if all[1].Key != "token" || all[1].Value != "abc" {
		t.Fatalf("all[1] = %+v, want token=abc", all[1])
	}
}

func TestVariableTable_Get(t *testing.T) {
	tbl := NewVariableTable()
	tbl.Set("k", "v")

	if v, ok := tbl.Get("k"); !ok || v != "v" {
		t.Fatalf("Get(k) = %q,%v, want v,true", v, ok)
	}
	if _, ok := tbl.Get("missing"); ok {
		t.Fatalf("Get(missing) = true, want false")
	}
}
