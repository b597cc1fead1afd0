package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/emkeyen/postman-to-jmx/internal/model"
)

// Result is the normalized output of one extraction pass: the flat request
// sequence in pre-order traversal order, the merged variable table, and the
// accumulated lossy-conversion notices.
type Result struct {
	CollectionName string
	Requests       []model.RequestDescriptor
	Variables      *model.VariableTable
	Notices        []model.Notice
}

// itemKind is the explicit classification of one collection item. Probing is
// done once, up front, instead of ad hoc field checks.
type itemKind int

const (
	kindUnclassifiable itemKind = iota
	kindFolder
	kindLeaf
)

// Extract walks the collection tree depth-first, flattening folders into a
// single ordered request sequence, and merges collection and environment
// variables (environment wins on key conflict, first-seen position is kept).
//
// Extraction never fails: per-item shape anomalies degrade locally so one
// malformed request cannot break conversion of the rest of the collection.
func Extract(col *Document, env *Environment) *Result {
	res := &Result{Variables: model.NewVariableTable()}
	if col == nil {
		return res
	}

	var info rawInfo
	leniently(col.root.Info, &info)
	res.CollectionName = info.Name

	mergeVariables(res.Variables, col.root.Variable)
	if env != nil {
		mergeVariables(res.Variables, env.root.Values)
	}

	res.Notices = append(res.Notices, scriptNotices("", col.root.Event)...)

	walkItems(col.root.Item, res)
	return res
}

func mergeVariables(table *model.VariableTable, raw json.RawMessage) {
	var vars []rawVariable
	leniently(raw, &vars)
	for _, v := range vars {
		if v.Key == "" || disabledVariable(v) {
			continue
		}
		table.Set(v.Key, stringify(v.Value))
	}
}

func disabledVariable(v rawVariable) bool {
	// Collections mark skipped entries with "disabled"; environments export
	// "enabled" (default true). Accept both spellings from either source.
	if v.Disabled {
		return true
	}
	return v.Enabled != nil && !*v.Enabled
}

func walkItems(raw json.RawMessage, res *Result) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		// Absent or malformed item sequence: treated as empty, not an error.
		return
	}
	for _, itemRaw := range items {
		var it rawItem
		if err := json.Unmarshal(itemRaw, &it); err != nil {
			continue
		}

		res.Notices = append(res.Notices, scriptNotices(it.Name, it.Event)...)

		switch classify(it) {
		case kindFolder:
			// The folder's own name is discarded: grouping is flattened.
			walkItems(it.Item, res)
		case kindLeaf:
			desc, notices := buildDescriptor(it.Name, it.Request)
			res.Requests = append(res.Requests, desc)
			res.Notices = append(res.Notices, notices...)
		default:
			// Neither folder nor leaf shape: skipped silently.
		}
	}
}

// classify decides folder vs leaf once per item. An item carrying both a
// nested item sequence and a request field counts as a folder: nested items
// win, matching the depth-first flattening guarantee.
func classify(it rawItem) itemKind {
	if jsonPresent(it.Item) {
		return kindFolder
	}
	if jsonPresent(it.Request) {
		return kindLeaf
	}
	return kindUnclassifiable
}

func jsonPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func scriptNotices(requestName string, events []rawEvent) []model.Notice {
	out := make([]model.Notice, 0, len(events))
	for _, ev := range events {
		listen := ev.Listen
		if listen == "" {
			listen = "(unknown)"
		}
		out = append(out, model.Notice{
			Code:    model.NoticeScript,
			Request: requestName,
			Message: fmt.Sprintf("脚本未转换：%s（需要手动迁移到 JMeter）", listen),
		})
	}
	return out
}

func buildDescriptor(name string, reqRaw json.RawMessage) (model.RequestDescriptor, []model.Notice) {
	desc := model.RequestDescriptor{Name: name, Method: "GET"}

	// Postman allows "request": "<url>" as a shorthand for a GET.
	var shortURL string
	if err := json.Unmarshal(reqRaw, &shortURL); err == nil {
		desc.URL, desc.Query = parseRawURL(shortURL)
		return desc, nil
	}

	var req rawRequest
	if err := json.Unmarshal(reqRaw, &req); err != nil {
		// Unusable request shape: keep the bare descriptor rather than drop
		// the sampler slot.
		desc.URL.Protocol = model.DefaultProtocol
		return desc, nil
	}

	if m := strings.ToUpper(strings.TrimSpace(req.Method)); m != "" {
		desc.Method = m
	}

	desc.Headers = extractHeaders(req.Header)

	var notices []model.Notice
	desc.Body, notices = extractBody(name, req.Body)

	var urlQuery []model.KV
	desc.URL, urlQuery, desc.PathVariables = extractURL(req.URL)
	desc.Query = urlQuery

	return desc, notices
}

func extractHeaders(raw json.RawMessage) []model.KV {
	var headers []rawHeader
	leniently(raw, &headers)
	out := make([]model.KV, 0, len(headers))
	for _, h := range headers {
		if h.Disabled {
			continue
		}
		// Verbatim and in order: duplicates and casing are preserved.
		out = append(out, model.KV{Key: h.Key, Value: h.Value})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func extractBody(requestName string, raw json.RawMessage) (model.Body, []model.Notice) {
	if !jsonPresent(raw) {
		return model.Body{Mode: model.BodyNone}, nil
	}
	var body rawBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return model.Body{Mode: model.BodyNone}, nil
	}

	switch body.Mode {
	case "raw":
		if body.Raw == "" {
			return model.Body{Mode: model.BodyNone}, nil
		}
		// Verbatim, no reformatting regardless of the language hint.
		return model.Body{Mode: model.BodyRaw, Raw: body.Raw}, nil
	case "urlencoded":
		form := make([]model.KV, 0, len(body.URLEncoded))
		for _, p := range body.URLEncoded {
			if p.Disabled {
				continue
			}
			form = append(form, model.KV{Key: p.Key, Value: stringify(p.Value)})
		}
		return model.Body{Mode: model.BodyForm, Form: form}, nil
	case "":
		// Body object without a mode carries no data; nothing is lost.
		return model.Body{Mode: model.BodyNone}, nil
	default:
		notice := model.Notice{
			Code:    model.NoticeUnsupportedBody,
			Request: requestName,
			Message: fmt.Sprintf("不支持的 body 模式：%s（请求体已置空）", body.Mode),
		}
		return model.Body{Mode: model.BodyNone}, []model.Notice{notice}
	}
}

func extractURL(raw json.RawMessage) (model.URL, []model.KV, []model.KV) {
	if !jsonPresent(raw) {
		return model.URL{Protocol: model.DefaultProtocol}, nil, nil
	}

	// String form first: the whole URL in one raw string.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		u, query := parseRawURL(s)
		return u, query, nil
	}

	var ru rawURL
	if err := json.Unmarshal(raw, &ru); err != nil {
		return model.URL{Protocol: model.DefaultProtocol}, nil, nil
	}

	u := model.URL{
		Raw:      ru.Raw,
		Protocol: strings.TrimSuffix(strings.TrimSpace(ru.Protocol), ":"),
		Host:     stringList(ru.Host, "."),
		Path:     stringList(ru.Path, "/"),
		Port:     rawScalar(ru.Port),
	}

	// Structured parts win; anything missing is derived from the raw string.
	var query []model.KV
	if ru.Raw != "" {
		derived, rawQuery := parseRawURL(ru.Raw)
		if u.Protocol == "" {
			u.Protocol = derived.Protocol
		}
		if len(u.Host) == 0 {
			u.Host = derived.Host
		}
		if len(u.Path) == 0 {
			u.Path = derived.Path
		}
		if u.Port == "" {
			u.Port = derived.Port
		}
		query = rawQuery
	}
	if u.Protocol == "" {
		u.Protocol = model.DefaultProtocol
	}

	if len(ru.Query) > 0 {
		query = query[:0]
		for _, q := range ru.Query {
			if q.Disabled {
				continue
			}
			query = append(query, model.KV{Key: q.Key, Value: stringify(q.Value)})
		}
	}

	var pathVars []model.KV
	for _, v := range ru.Variable {
		if v.Disabled || v.Key == "" {
			continue
		}
		pathVars = append(pathVars, model.KV{Key: v.Key, Value: stringify(v.Value)})
	}

	return u, query, pathVars
}

// parseRawURL derives structured URL parts from a raw URL string:
// protocol before "://" (default http), remainder split on the first "/"
// into host and path, host split on "." (with an optional ":port" suffix),
// path split on "/" with empty segments dropped, query split on "&".
func parseRawURL(raw string) (model.URL, []model.KV) {
	u := model.URL{Raw: raw, Protocol: model.DefaultProtocol}
	s := strings.TrimSpace(raw)
	if s == "" {
		return u, nil
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	if proto, rest, ok := strings.Cut(s, "://"); ok {
		if p := strings.TrimSpace(proto); p != "" {
			u.Protocol = strings.ToLower(p)
		}
		s = rest
	}

	var queryPart string
	s, queryPart, _ = strings.Cut(s, "?")

	hostPort, pathPart, _ := strings.Cut(s, "/")
	// The ']' guard keeps bracketed IPv6 hosts intact.
	if i := strings.LastIndexByte(hostPort, ':'); i >= 0 && i > strings.LastIndexByte(hostPort, ']') {
		u.Port = hostPort[i+1:]
		hostPort = hostPort[:i]
	}
	if hostPort != "" {
		u.Host = strings.Split(hostPort, ".")
	}

	for _, seg := range strings.Split(pathPart, "/") {
		if seg == "" {
			continue
		}
		u.Path = append(u.Path, seg)
	}

	return u, parseQueryString(queryPart)
}

func parseQueryString(q string) []model.KV {
	if q == "" {
		return nil
	}
	var out []model.KV
	for _, tok := range strings.Split(q, "&") {
		if tok == "" {
			continue
		}
		k, v, _ := strings.Cut(tok, "=")
		out = append(out, model.KV{Key: k, Value: v})
	}
	return out
}

// leniently decodes raw into out and ignores failures: a malformed optional
// field degrades to its zero value instead of aborting the document.
func leniently(raw json.RawMessage, out any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, out)
}

// rawScalar renders a JSON scalar (string or number) as its string form.
func rawScalar(raw json.RawMessage) string {
	if !jsonPresent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// stringList accepts either a JSON array of strings or a single delimited
// string ("example.com" or "a/b/c") and returns the segment sequence.
func stringList(raw json.RawMessage, sep string) []string {
	if !jsonPresent(raw) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, seg := range list {
			if sep == "/" && seg == "" {
				continue
			}
			out = append(out, seg)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		var out []string
		for _, seg := range strings.Split(s, sep) {
			if sep == "/" && seg == "" {
				continue
			}
			out = append(out, seg)
		}
		return out
	}
	return nil
}

// stringify renders a loosely-typed JSON value the way the source intends it
// to appear in the plan: scalars verbatim, anything structured as compact
// JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}
