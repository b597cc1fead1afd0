package jmx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emkeyen/postman-to-jmx/internal/collection"
	"github.com/emkeyen/postman-to-jmx/internal/model"
	"github.com/emkeyen/postman-to-jmx/internal/profile"
)

func extract(t *testing.T, data string) *collection.Result {
	t.Helper()
	doc, err := collection.ParseCollection("test.json", []byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return collection.Extract(doc, nil)
}

func prop(t *testing.T, n *Node, kind, name string) string {
	t.Helper()
	p := n.Find(kind, "name", name)
	if p == nil {
		t.Fatalf("%s %q not found", kind, name)
	}
	return p.Text
}

func TestEmit_EmptyCollectionStructure(t *testing.T) {
	root := Emit(extract(t, `{"item": []}`), nil)

	if root.XMLName.Local != "jmeterTestPlan" {
		t.Fatalf("root = %q, want jmeterTestPlan", root.XMLName.Local)
	}
	if root.Attr("version") != "1.2" || root.Attr("properties") != "5.0" || root.Attr("jmeter") != "5.2.1" {
		t.Fatalf("root attrs = %v", root.Attrs)
	}

	tp := root.Find("TestPlan", "", "")
	if tp == nil {
		t.Fatalf("TestPlan missing")
	}
	if got := tp.Attr("testname"); got != "Postman Collection Import" {
		t.Fatalf("plan name = %q, want default", got)
	}

	// The variables config is always present, even with no variables.
	vars := root.Find("Arguments", "testname", "User Defined Variables")
	if vars == nil {
		t.Fatalf("User Defined Variables element missing")
	}
	coll := vars.Find("collectionProp", "name", "Arguments.arguments")
	if coll == nil || len(coll.Children) != 0 {
		t.Fatalf("variables collectionProp = %v, want empty", coll)
	}

	if root.Find("ThreadGroup", "", "") == nil {
		t.Fatalf("ThreadGroup missing")
	}
	if root.Find("ResultCollector", "testname", "View Results Tree") == nil {
		t.Fatalf("ResultCollector missing")
	}
}

func TestEmit_ThreadGroupFromProfile(t *testing.T) {
	spec := &profile.Spec{
		Version:       1,
		PlanName:      "Load Test",
		Threads:       10,
		RampTime:      30,
		Loops:         2,
		OnSampleError: "stopthread",
	}
	root := Emit(extract(t, `{"info": {"name": "Orders API"}, "item": []}`), spec)

	tp := root.Find("TestPlan", "", "")
	if got := tp.Attr("testname"); got != "Load Test" {
		t.Fatalf("plan name = %q, want Load Test", got)
	}

	tg := root.Find("ThreadGroup", "", "")
	if got := tg.Attr("testname"); got != "Orders API" {
		t.Fatalf("thread group name = %q, want Orders API", got)
	}
	if got := prop(t, tg, "stringProp", "ThreadGroup.num_threads"); got != "10" {
		t.Fatalf("num_threads = %q, want 10", got)
	}
	if got := prop(t, tg, "stringProp", "ThreadGroup.ramp_time"); got != "30" {
		t.Fatalf("ramp_time = %q, want 30", got)
	}
	if got := prop(t, tg, "stringProp", "LoopController.loops"); got != "2" {
		t.Fatalf("loops = %q, want 2", got)
	}
	if got := prop(t, tg, "stringProp", "ThreadGroup.on_sample_error"); got != "stopthread" {
		t.Fatalf("on_sample_error = %q, want stopthread", got)
	}
}

func TestEmit_SamplerBasics(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [{"name": "list users", "request": {
			"method": "get",
			"url": "https://api.example.com/v1/users"
		}}]
	}`), nil)

	s := root.Find("HTTPSamplerProxy", "", "")
	if s == nil {
		t.Fatalf("sampler missing")
	}
	if got := s.Attr("testname"); got != "list users" {
		t.Fatalf("sampler name = %q", got)
	}
	if got := prop(t, s, "stringProp", "HTTPSampler.method"); got != "GET" {
		t.Fatalf("method = %q, want GET", got)
	}
	if got := prop(t, s, "stringProp", "HTTPSampler.domain"); got != "api.example.com" {
		t.Fatalf("domain = %q", got)
	}
	if got := prop(t, s, "stringProp", "HTTPSampler.path"); got != "/v1/users" {
		t.Fatalf("path = %q", got)
	}
	if got := prop(t, s, "stringProp", "HTTPSampler.protocol"); got != "https" {
		t.Fatalf("protocol = %q", got)
	}
	if got := prop(t, s, "stringProp", "HTTPSampler.port"); got != "443" {
		t.Fatalf("port = %q, want https default 443", got)
	}
}

func TestEmit_PortDefaults(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [
			{"name": "plain", "request": {"url": "http://example.com"}},
			{"name": "explicit", "request": {"url": "http://example.com:8080"}}
		]
	}`), nil)

	samplers := root.FindAll("HTTPSamplerProxy", "", "")
	if len(samplers) != 2 {
		t.Fatalf("samplers = %d, want 2", len(samplers))
	}
	if got := prop(t, samplers[0], "stringProp", "HTTPSampler.port"); got != "80" {
		t.Fatalf("port = %q, want 80", got)
	}
	if got := prop(t, samplers[1], "stringProp", "HTTPSampler.port"); got != "8080" {
		t.Fatalf("port = %q, want 8080", got)
	}
}

func TestEmit_UnnamedSampler(t *testing.T) {
	root := Emit(extract(t, `{"item": [{"request": {"url": "http://example.com"}}]}`), nil)
	s := root.Find("HTTPSamplerProxy", "", "")
	if got := s.Attr("testname"); got != "Unnamed Request" {
		t.Fatalf("sampler name = %q, want Unnamed Request", got)
	}
}

func TestEmit_RawBody(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [{"name": "create", "request": {
			"method": "POST",
			"url": "http://example.com/users",
			"body": {"mode": "raw", "raw": "{\"name\": \"å\"}"}
		}}]
	}`), nil)

	s := root.Find("HTTPSamplerProxy", "", "")
	if got := prop(t, s, "boolProp", "HTTPSampler.postBodyRaw"); got != "true" {
		t.Fatalf("postBodyRaw = %q, want true", got)
	}

	args := s.FindAll("elementProp", "elementType", "HTTPArgument")
	if len(args) != 1 {
		t.Fatalf("HTTPArgument count = %d, want 1", len(args))
	}
	if got := args[0].Attr("name"); got != "" {
		t.Fatalf("raw body argument name = %q, want empty", got)
	}
	if got := prop(t, args[0], "stringProp", "Argument.value"); got != "{\"name\": \"å\"}" {
		t.Fatalf("raw body = %q, verbatim transfer broken", got)
	}
	if got := prop(t, args[0], "boolProp", "HTTPArgument.always_encode"); got != "false" {
		t.Fatalf("always_encode = %q, want false", got)
	}
}

func TestEmit_FormBodyPairsInOrder(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [{"name": "form", "request": {
			"method": "POST",
			"url": "http://example.com/submit",
			"body": {"mode": "urlencoded", "urlencoded": [
				{"key": "x", "value": "1"},
				{"key": "y", "value": "2"}
			]}
		}}]
	}`), nil)

	s := root.Find("HTTPSamplerProxy", "", "")
	if s.Find("boolProp", "name", "HTTPSampler.postBodyRaw") != nil {
		t.Fatalf("postBodyRaw must not appear for form bodies")
	}

	args := s.FindAll("elementProp", "elementType", "HTTPArgument")
	if len(args) != 2 {
		t.Fatalf("HTTPArgument count = %d, want 2", len(args))
	}
	if args[0].Attr("name") != "x" || args[1].Attr("name") != "y" {
		t.Fatalf("argument order = [%q %q], want [x y]", args[0].Attr("name"), args[1].Attr("name"))
	}
	if got := prop(t, args[0], "stringProp", "Argument.value"); got != "1" {
		t.Fatalf("x value = %q, want 1", got)
	}
	if got := prop(t, args[0], "boolProp", "HTTPArgument.always_encode"); got != "false" {
		t.Fatalf("form always_encode = %q, want false", got)
	}
}

func TestEmit_QueryParamsAsEncodedArguments(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [{"name": "q", "request": {
			"url": "http://example.com/search?term=a b&page=2"
		}}]
	}`), nil)

	s := root.Find("HTTPSamplerProxy", "", "")
	if got := prop(t, s, "stringProp", "HTTPSampler.path"); got != "/search" {
		t.Fatalf("path = %q, want query stripped from path", got)
	}

	args := s.FindAll("elementProp", "elementType", "HTTPArgument")
	if len(args) != 2 {
		t.Fatalf("HTTPArgument count = %d, want 2", len(args))
	}
	if args[0].Attr("name") != "term" || args[1].Attr("name") != "page" {
		t.Fatalf("argument order = [%q %q], want [term page]", args[0].Attr("name"), args[1].Attr("name"))
	}
	if got := prop(t, args[0], "boolProp", "HTTPArgument.always_encode"); got != "true" {
		t.Fatalf("query always_encode = %q, want true", got)
	}
}

func TestEmit_RawBodyKeepsQueryInPath(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [{"name": "mix", "request": {
			"method": "POST",
			"url": "http://example.com/things?a=1&b=2",
			"body": {"mode": "raw", "raw": "payload"}
		}}]
	}`), nil)

	s := root.Find("HTTPSamplerProxy", "", "")
	if got := prop(t, s, "stringProp", "HTTPSampler.path"); got != "/things?a=1&b=2" {
		t.Fatalf("path = %q, want query appended for raw-body sampler", got)
	}
	// The single Arguments slot is taken by the raw body.
	args := s.FindAll("elementProp", "elementType", "HTTPArgument")
	if len(args) != 1 {
		t.Fatalf("HTTPArgument count = %d, want 1 (raw body only)", len(args))
	}
}

func TestEmit_HeaderManager(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [
			{"name": "with", "request": {
				"url": "http://example.com",
				"header": [
					{"key": "Accept", "value": "application/json"},
					{"key": "X-Trace", "value": "1"}
				]
			}},
			{"name": "without", "request": {"url": "http://example.com"}}
		]
	}`), nil)

	managers := root.FindAll("HeaderManager", "", "")
	if len(managers) != 1 {
		t.Fatalf("HeaderManager count = %d, want 1", len(managers))
	}
	headers := managers[0].FindAll("elementProp", "elementType", "Header")
	if len(headers) != 2 {
		t.Fatalf("Header count = %d, want 2", len(headers))
	}
	if got := prop(t, headers[0], "stringProp", "Header.name"); got != "Accept" {
		t.Fatalf("headers[0] = %q, want Accept", got)
	}
	if got := prop(t, headers[1], "stringProp", "Header.value"); got != "1" {
		t.Fatalf("headers[1] value = %q, want 1", got)
	}
}

func TestEmit_PathVariablesElement(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [{"name": "r", "request": {"url": {
			"raw": "http://example.com/users/:id",
			"variable": [{"key": "id", "value": "7"}]
		}}}]
	}`), nil)

	pv := root.Find("Arguments", "testname", "URL Path Variables")
	if pv == nil {
		t.Fatalf("URL Path Variables element missing")
	}
	if got := prop(t, pv, "stringProp", "Argument.name"); got != "id" {
		t.Fatalf("path variable = %q, want id", got)
	}
}

func TestEmit_Variables(t *testing.T) {
	doc, err := collection.ParseCollection("test.json", []byte(`{
		"variable": [{"key": "host", "value": "example.com"}],
		"item": []
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env, err := collection.ParseEnvironment("env.json", []byte(`{
		"values": [{"key": "token", "value": "t"}]
	}`))
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	res := collection.Extract(doc, env)

	root := Emit(res, nil)
	vars := root.Find("Arguments", "testname", "User Defined Variables")
	args := vars.FindAll("elementProp", "elementType", "Argument")
	if len(args) != 2 {
		t.Fatalf("variable count = %d, want 2", len(args))
	}
	if args[0].Attr("name") != "host" || args[1].Attr("name") != "token" {
		t.Fatalf("variable order = [%q %q], want [host token]", args[0].Attr("name"), args[1].Attr("name"))
	}
}

func TestEmit_SamplerHashTreePairing(t *testing.T) {
	root := Emit(extract(t, `{
		"item": [
			{"name": "a", "request": {"url": "http://example.com"}},
			{"name": "b", "request": {"url": "http://example.com"}}
		]
	}`), nil)

	// Inside the thread group subtree, samplers and hashTrees must
	// interleave: sampler, hashTree, sampler, hashTree.
	var samplersTree *Node
	for _, ht := range root.FindAll("hashTree", "", "") {
		if len(ht.Children) > 0 && ht.Children[0].XMLName.Local == "HTTPSamplerProxy" {
			samplersTree = ht
			break
		}
	}
	if samplersTree == nil {
		t.Fatalf("samplers hashTree not found")
	}
	if len(samplersTree.Children) != 4 {
		t.Fatalf("children = %d, want 4 (sampler+hashTree pairs)", len(samplersTree.Children))
	}
	for i := 0; i < 4; i += 2 {
		if samplersTree.Children[i].XMLName.Local != "HTTPSamplerProxy" {
			t.Fatalf("children[%d] = %q, want HTTPSamplerProxy", i, samplersTree.Children[i].XMLName.Local)
		}
		if samplersTree.Children[i+1].XMLName.Local != "hashTree" {
			t.Fatalf("children[%d] = %q, want hashTree", i+1, samplersTree.Children[i+1].XMLName.Local)
		}
	}
}

func TestSerialize_HeaderIndentAndDeterminism(t *testing.T) {
	res := extract(t, `{
		"info": {"name": "API"},
		"variable": [{"key": "a", "value": "1"}, {"key": "b", "value": "2"}],
		"item": [{"name": "r", "request": {"url": "http://example.com/x?q=1"}}]
	}`)

	first, err := Serialize(Emit(res, nil))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if !bytes.HasPrefix(first, []byte(`<?xml version="1.0" encoding="UTF-8"?>`)) {
		t.Fatalf("missing XML declaration: %q", first[:40])
	}
	if !bytes.HasSuffix(first, []byte("</jmeterTestPlan>\n")) {
		t.Fatalf("missing closing root / trailing newline")
	}
	if !strings.Contains(string(first), "\n    <hashTree>") {
		t.Fatalf("output is not 4-space indented")
	}

	second, err := Serialize(Emit(res, nil))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same input produced different output")
	}
}

func TestSerialize_EscapesMarkup(t *testing.T) {
	res := &collection.Result{
		Variables: model.NewVariableTable(),
		Requests: []model.RequestDescriptor{{
			Name:   "escape <&>",
			Method: "POST",
			URL:    model.URL{Protocol: "http", Host: []string{"example", "com"}},
			Body:   model.Body{Mode: model.BodyRaw, Raw: `<xml attr="v">&amp;</xml>`},
		}},
	}

	out, err := Serialize(Emit(res, nil))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	s := string(out)
	if strings.Contains(s, `<xml attr=`) {
		t.Fatalf("raw body leaked unescaped markup")
	}
	if !strings.Contains(s, "escape &lt;&amp;&gt;") {
		t.Fatalf("testname not escaped: %q", s)
	}
}
