package jmx

import "encoding/xml"

// Node is a generic XML element. The JMX schema interleaves sibling elements
// of different names (every test element is followed by its own hashTree), so
// a fixed-struct layout cannot express it; an ordered element tree can, and
// keeps the emitted document deterministic.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Node
}

func elem(name string, attrs ...xml.Attr) *Node {
	return &Node{XMLName: xml.Name{Local: name}, Attrs: attrs}
}

func attr(key, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: key}, Value: value}
}

func (n *Node) add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == key {
			return a.Value
		}
	}
	return ""
}

// Find returns the first descendant (depth-first, including n itself) with
// the given element name and, when attrKey is non-empty, the given attribute
// value. Intended for tests and tree inspection, not for emission.
func (n *Node) Find(name, attrKey, attrValue string) *Node {
	if n == nil {
		return nil
	}
	if n.XMLName.Local == name && (attrKey == "" || n.Attr(attrKey) == attrValue) {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(name, attrKey, attrValue); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns all matching descendants in document order.
func (n *Node) FindAll(name, attrKey, attrValue string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	if n.XMLName.Local == name && (attrKey == "" || n.Attr(attrKey) == attrValue) {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindAll(name, attrKey, attrValue)...)
	}
	return out
}

// stringProp/boolProp/elementProp/collectionProp mirror the JMeter property
// vocabulary so emission reads like the schema it produces.

func stringProp(name, value string) *Node {
	n := elem("stringProp", attr("name", name))
	n.Text = value
	return n
}

func boolProp(name string, value bool) *Node {
	n := elem("boolProp", attr("name", name))
	if value {
		n.Text = "true"
	} else {
		n.Text = "false"
	}
	return n
}

func elementProp(name, elementType string, attrs ...xml.Attr) *Node {
	all := append([]xml.Attr{attr("name", name), attr("elementType", elementType)}, attrs...)
	return elem("elementProp", all...)
}

func collectionProp(name string) *Node {
	return elem("collectionProp", attr("name", name))
}

// testElement builds the common GUI element header shared by every JMX test
// element (TestPlan, ThreadGroup, samplers, config elements, listeners).
func testElement(tag, guiclass, testclass, testname string) *Node {
	return elem(tag,
		attr("guiclass", guiclass),
		attr("testclass", testclass),
		attr("testname", testname),
		attr("enabled", "true"),
	)
}

func hashTree(children ...*Node) *Node {
	return elem("hashTree").add(children...)
}
