package jmx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/emkeyen/postman-to-jmx/internal/collection"
	"github.com/emkeyen/postman-to-jmx/internal/model"
	"github.com/emkeyen/postman-to-jmx/internal/profile"
)

// Root element identifiers. JMeter refuses to load files without them.
const (
	jmxVersion    = "1.2"
	jmxProperties = "5.0"
	jmxJMeter     = "5.2.1"
)

const (
	defaultPlanName       = "Postman Collection Import"
	defaultThreadGroup    = "Postman Requests"
	defaultSamplerName    = "Unnamed Request"
	variablesElementName  = "User Defined Variables"
	pathVariablesElemName = "URL Path Variables"
)

// Emit transforms an extraction result into the full JMX document tree:
// test plan → user-defined-variables config → thread group with one sampler
// per request (traversal order) → results listener. Emission is pure tree
// construction; it cannot fail and never mutates res.
// PlanName reports the test plan name Emit will write: the profile's
// plan.name when set, otherwise a fixed default.
func PlanName(spec *profile.Spec) string {
	if spec == nil || spec.PlanName == "" {
		return defaultPlanName
	}
	return spec.PlanName
}

func Emit(res *collection.Result, spec *profile.Spec) *Node {
	if spec == nil {
		spec = profile.Default()
	}

	planName := PlanName(spec)
	groupName := res.CollectionName
	if groupName == "" {
		groupName = defaultThreadGroup
	}

	planTree := hashTree(
		variablesConfig(res.Variables),
		hashTree(),
		threadGroup(groupName, spec),
		samplersTree(res.Requests),
		resultsListener(),
		hashTree(),
	)

	root := elem("jmeterTestPlan",
		attr("version", jmxVersion),
		attr("properties", jmxProperties),
		attr("jmeter", jmxJMeter),
	)
	root.add(hashTree(testPlan(planName), planTree))
	return root
}

// Serialize renders the tree as the final byte stream: XML declaration plus
// a 4-space-indented document with a trailing newline.
func Serialize(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("serialize test plan: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serialize test plan: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func testPlan(name string) *Node {
	tp := testElement("TestPlan", "TestPlanGui", "TestPlan", name)
	tp.add(
		boolProp("TestPlan.functional_mode", false),
		stringProp("TestPlan.comments", ""),
		boolProp("TestPlan.serialize_threadgroups", false),
		stringProp("TestPlan.user_define_classpath", ""),
		elementProp("TestPlan.user_defined_variables", "Arguments").add(
			collectionProp("Arguments.arguments"),
		),
	)
	return tp
}

func threadGroup(name string, spec *profile.Spec) *Node {
	tg := testElement("ThreadGroup", "ThreadGroupGui", "ThreadGroup", name)
	tg.add(
		elementProp("ThreadGroup.main_controller", "LoopController",
			attr("guiclass", "LoopControlPanel"),
			attr("testclass", "LoopController"),
			attr("enabled", "true"),
		).add(
			boolProp("LoopController.continue_forever", false),
			stringProp("LoopController.loops", strconv.Itoa(spec.Loops)),
		),
		stringProp("ThreadGroup.num_threads", strconv.Itoa(spec.Threads)),
		stringProp("ThreadGroup.ramp_time", strconv.Itoa(spec.RampTime)),
		boolProp("ThreadGroup.scheduler", false),
		stringProp("ThreadGroup.duration", "0"),
		stringProp("ThreadGroup.delay", "0"),
		stringProp("ThreadGroup.on_sample_error", spec.OnSampleError),
		boolProp("ThreadGroup.same_user_on_next_iteration", true),
	)
	return tg
}

// variablesConfig serializes the merged table as one Arguments config
// element, in table order. Always present, even when the table is empty.
func variablesConfig(table *model.VariableTable) *Node {
	args := testElement("Arguments", "ArgumentsPanel", "Arguments", variablesElementName)
	coll := collectionProp("Arguments.arguments")
	if table != nil {
		for _, v := range table.All() {
			coll.add(argument(v.Key, v.Value))
		}
	}
	args.add(coll)
	return args
}

func argument(key, value string) *Node {
	return elementProp(key, "Argument").add(
		stringProp("Argument.name", key),
		stringProp("Argument.value", value),
		stringProp("Argument.metadata", "="),
	)
}

func samplersTree(requests []model.RequestDescriptor) *Node {
	tree := hashTree()
	for _, req := range requests {
		tree.add(sampler(req), samplerSubTree(req))
	}
	return tree
}

func sampler(req model.RequestDescriptor) *Node {
	name := req.Name
	if name == "" {
		name = defaultSamplerName
	}
	s := testElement("HTTPSamplerProxy", "HttpTestSampleGui", "HTTPSamplerProxy", name)

	s.add(samplerArguments(req)...)
	s.add(
		boolProp("HTTPSampler.auto_redirects", false),
		boolProp("HTTPSampler.follow_redirects", true),
		boolProp("HTTPSampler.use_keepalive", true),
		boolProp("HTTPSampler.DO_MULTIPART_POST", false),
		stringProp("HTTPSampler.embedded_url_re", ""),
		stringProp("HTTPSampler.contentEncoding", ""),
		stringProp("HTTPSampler.method", req.Method),
		stringProp("HTTPSampler.domain", req.URL.Domain()),
		stringProp("HTTPSampler.path", samplerPath(req)),
		stringProp("HTTPSampler.protocol", req.URL.Protocol),
		stringProp("HTTPSampler.port", req.URL.PortOrDefault()),
	)
	return s
}

// samplerPath keeps the query string in the path for raw-body samplers:
// JMeter reuses the Arguments element for a raw post body, so query pairs
// cannot live there at the same time.
func samplerPath(req model.RequestDescriptor) string {
	path := req.URL.PathString()
	if req.Body.Mode != model.BodyRaw || len(req.Query) == 0 {
		return path
	}
	pairs := make([]string, 0, len(req.Query))
	for _, q := range req.Query {
		pairs = append(pairs, q.Key+"="+q.Value)
	}
	return path + "?" + strings.Join(pairs, "&")
}

// samplerArguments encodes the body-and-parameters nodes. Exactly one
// Arguments element is emitted per sampler, whatever the body variant; a raw
// body additionally flips the postBodyRaw flag.
func samplerArguments(req model.RequestDescriptor) []*Node {
	args := argumentsElement()
	coll := collectionProp("Arguments.arguments")

	if req.Body.Mode == model.BodyRaw {
		coll.add(rawBodyArgument(req.Body.Raw))
		args.add(coll)
		return []*Node{boolProp("HTTPSampler.postBodyRaw", true), args}
	}

	if req.Body.Mode == model.BodyForm {
		for _, p := range req.Body.Form {
			coll.add(formArgument(p.Key, p.Value, false))
		}
	}
	for _, q := range req.Query {
		coll.add(formArgument(q.Key, q.Value, true))
	}
	args.add(coll)
	return []*Node{args}
}

func argumentsElement() *Node {
	return elementProp("HTTPsampler.Arguments", "Arguments",
		attr("guiclass", "HTTPArgumentsPanel"),
		attr("testclass", "Arguments"),
		attr("enabled", "true"),
	)
}

func rawBodyArgument(raw string) *Node {
	// Name is empty for a raw body; the value carries the text verbatim.
	return elementProp("", "HTTPArgument").add(
		boolProp("HTTPArgument.always_encode", false),
		stringProp("Argument.value", raw),
		stringProp("Argument.metadata", "="),
	)
}

func formArgument(key, value string, encode bool) *Node {
	return elementProp(key, "HTTPArgument").add(
		boolProp("HTTPArgument.always_encode", encode),
		stringProp("Argument.value", value),
		stringProp("Argument.metadata", "="),
		boolProp("HTTPArgument.use_equals", true),
		stringProp("Argument.name", key),
	)
}

// samplerSubTree holds the per-sampler children: header manager and URL path
// variables. Emitted even when empty so every sampler has its hashTree.
func samplerSubTree(req model.RequestDescriptor) *Node {
	tree := hashTree()
	if len(req.Headers) > 0 {
		hm := testElement("HeaderManager", "HeaderPanel", "HeaderManager", "HTTP Header Manager")
		coll := collectionProp("HeaderManager.headers")
		for _, h := range req.Headers {
			coll.add(elementProp("", "Header").add(
				stringProp("Header.name", h.Key),
				stringProp("Header.value", h.Value),
			))
		}
		hm.add(coll)
		tree.add(hm, hashTree())
	}
	if len(req.PathVariables) > 0 {
		args := testElement("Arguments", "ArgumentsPanel", "Arguments", pathVariablesElemName)
		coll := collectionProp("Arguments.arguments")
		for _, v := range req.PathVariables {
			coll.add(argument(v.Key, v.Value))
		}
		args.add(coll)
		tree.add(args, hashTree())
	}
	return tree
}

func resultsListener() *Node {
	rc := testElement("ResultCollector", "ViewResultsFullVisualizer", "ResultCollector", "View Results Tree")
	rc.add(
		boolProp("ResultCollector.error_logging", false),
		objProp(),
		stringProp("filename", ""),
	)
	return rc
}

// objProp is the static SampleSaveConfiguration blob every ResultCollector
// carries. Fixed configuration, not derived from input.
func objProp() *Node {
	value := elem("value", attr("class", "SampleSaveConfiguration"))
	for _, f := range saveConfigFlags {
		n := elem(f.name)
		n.Text = f.value
		value.add(n)
	}
	op := elem("objProp")
	nameNode := elem("name")
	nameNode.Text = "saveConfig"
	op.add(nameNode, value)
	return op
}

var saveConfigFlags = []struct{ name, value string }{
	{"time", "true"},
	{"latency", "true"},
	{"timestamp", "true"},
	{"success", "true"},
	{"label", "true"},
	{"code", "true"},
	{"message", "true"},
	{"threadName", "true"},
	{"dataType", "true"},
	{"encoding", "false"},
	{"assertions", "true"},
	{"subresults", "true"},
	{"responseData", "false"},
	{"samplerData", "false"},
	{"xml", "false"},
	{"fieldNames", "true"},
	{"responseHeaders", "false"},
	{"requestHeaders", "false"},
	{"responseDataOnError", "false"},
	{"saveAssertionResultsFailureMessage", "true"},
	{"assertionsResultsToSave", "0"},
	{"bytes", "true"},
	{"sentBytes", "true"},
	{"url", "true"},
	{"threadCounts", "true"},
	{"idleTime", "true"},
	{"connectTime", "true"},
}
