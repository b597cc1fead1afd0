package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/emkeyen/postman-to-jmx/internal/collection"
	"github.com/emkeyen/postman-to-jmx/internal/fetch"
	"github.com/emkeyen/postman-to-jmx/internal/jmx"
	"github.com/emkeyen/postman-to-jmx/internal/profile"
)

// convertRequest is the normalized conversion request: each input document is
// either inline text or a URL, never both.
type convertRequest struct {
	Collection     string
	CollectionURL  string
	Environment    string
	EnvironmentURL string
	Profile        string
	ProfileURL     string
	FileName       string
	Strict         bool
}

type convertRequestJSON struct {
	Collection     json.RawMessage `json:"collection"`
	CollectionURL  string          `json:"collection_url"`
	Environment    json.RawMessage `json:"environment"`
	EnvironmentURL string          `json:"environment_url"`
	Profile        string          `json:"profile"`
	ProfileURL     string          `json:"profile_url"`
	FileName       string          `json:"file_name"`
	Strict         bool            `json:"strict"`
}

// convertResult carries everything the handlers need to shape the response.
type convertResult struct {
	JMX      []byte
	PlanName string
	Notices  int
}

type convertHandler struct {
	opt Options
}

func (h convertHandler) handleConvertGET(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertGET(r)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	h.serveConvert(w, r, req)
}

func (h convertHandler) handleConvertPOST(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertPOST(r)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	h.serveConvert(w, r, req)
}

func (h convertHandler) serveConvert(w http.ResponseWriter, r *http.Request, req convertRequest) {
	res, err := h.runConvert(r.Context(), req)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	filename, err := outputFileName(req.FileName, res.PlanName)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	if filename != "" {
		w.Header().Set("Content-Disposition", contentDispositionAttachment(filename))
	}
	w.Header().Set("X-Conversion-Notices", strconv.Itoa(res.Notices))
	WriteXML(w, http.StatusOK, res.JMX)
}

// runConvert is the full pipeline: resolve each document (inline or fetched),
// parse, optionally schema-validate, extract, emit, serialize.
func (h convertHandler) runConvert(ctx context.Context, req convertRequest) (*convertResult, error) {
	// Keep a hard upper bound so handlers don't hang forever if upstream misbehaves.
	ctx, cancel := context.WithTimeout(ctx, h.opt.ConvertTimeout)
	defer cancel()

	fetchOpt := fetch.Options{Timeout: h.opt.FetchTimeout}

	colSource, colData, err := resolveDocument(ctx, fetch.KindCollection, req.Collection, req.CollectionURL, fetchOpt)
	if err != nil {
		return nil, err
	}

	if req.Strict {
		if err := collection.ValidateCollection(colSource, colData); err != nil {
			return nil, err
		}
	}
	doc, err := collection.ParseCollection(colSource, colData)
	if err != nil {
		return nil, err
	}

	var env *collection.Environment
	if req.Environment != "" || req.EnvironmentURL != "" {
		envSource, envData, err := resolveDocument(ctx, fetch.KindEnvironment, req.Environment, req.EnvironmentURL, fetchOpt)
		if err != nil {
			return nil, err
		}
		env, err = collection.ParseEnvironment(envSource, envData)
		if err != nil {
			return nil, err
		}
	}

	spec := profile.Default()
	if req.Profile != "" || req.ProfileURL != "" {
		profSource, profData, err := resolveDocument(ctx, fetch.KindProfile, req.Profile, req.ProfileURL, fetchOpt)
		if err != nil {
			return nil, err
		}
		spec, err = profile.ParseProfileYAML(profSource, string(profData))
		if err != nil {
			return nil, err
		}
	}

	extracted := collection.Extract(doc, env)
	for _, n := range extracted.Notices {
		log.Printf("convert notice source=%q code=%s request=%q %s", colSource, n.Code, n.Request, n.Message)
	}

	out, err := jmx.Serialize(jmx.Emit(extracted, spec))
	if err != nil {
		return nil, err
	}
	return &convertResult{
		JMX:      out,
		PlanName: jmx.PlanName(spec),
		Notices:  len(extracted.Notices),
	}, nil
}

// resolveDocument returns the bytes of one input document plus a source label
// for error reporting. Exactly one of inline/docURL is set by the parsers.
func resolveDocument(ctx context.Context, kind fetch.Kind, inline, docURL string, opt fetch.Options) (string, []byte, error) {
	if inline != "" {
		return inlineSourceLabel(kind), []byte(inline), nil
	}
	text, err := fetch.FetchTextWithOptions(ctx, kind, docURL, opt)
	if err != nil {
		return "", nil, err
	}
	return docURL, []byte(text), nil
}

func inlineSourceLabel(kind fetch.Kind) string {
	switch kind {
	case fetch.KindEnvironment:
		return "inline environment"
	case fetch.KindProfile:
		return "inline profile"
	default:
		return "inline collection"
	}
}

func parseConvertGET(r *http.Request) (convertRequest, error) {
	q := r.URL.Query()
	for key := range q {
		switch key {
		case "collection", "environment", "profile", "fileName", "strict":
		default:
			return convertRequest{}, requestError("INVALID_ARGUMENT", fmt.Sprintf("不支持的 query 参数：%s", key), "")
		}
	}

	colURL, err := singleQuery(q, "collection", true)
	if err != nil {
		return convertRequest{}, err
	}
	colURL = strings.TrimSpace(colURL)
	if colURL == "" {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "collection 不能为空", "expected: collection=<url>")
	}

	envURL, err := singleQuery(q, "environment", false)
	if err != nil {
		return convertRequest{}, err
	}
	profURL, err := singleQuery(q, "profile", false)
	if err != nil {
		return convertRequest{}, err
	}
	fileName, err := singleQuery(q, "fileName", false)
	if err != nil {
		return convertRequest{}, err
	}

	strict := false
	if raw, ok := q["strict"]; ok {
		v, err := singleQuery(q, "strict", true)
		if err != nil {
			return convertRequest{}, err
		}
		strict, err = strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return convertRequest{}, requestError("INVALID_ARGUMENT", "strict 必须是布尔值", strings.Join(raw, ","))
		}
	}

	return convertRequest{
		CollectionURL:  colURL,
		EnvironmentURL: strings.TrimSpace(envURL),
		ProfileURL:     strings.TrimSpace(profURL),
		FileName:       fileName,
		Strict:         strict,
	}, nil
}

func parseConvertPOST(r *http.Request) (convertRequest, error) {
	var body convertRequestJSON
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 不允许多段", "")
	} else if !errors.Is(err, io.EOF) {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}

	req := convertRequest{
		Collection:     rawText(body.Collection),
		CollectionURL:  strings.TrimSpace(body.CollectionURL),
		Environment:    rawText(body.Environment),
		EnvironmentURL: strings.TrimSpace(body.EnvironmentURL),
		Profile:        body.Profile,
		ProfileURL:     strings.TrimSpace(body.ProfileURL),
		FileName:       body.FileName,
		Strict:         body.Strict,
	}

	if err := exclusiveDocument("collection", req.Collection, req.CollectionURL, true); err != nil {
		return convertRequest{}, err
	}
	if err := exclusiveDocument("environment", req.Environment, req.EnvironmentURL, false); err != nil {
		return convertRequest{}, err
	}
	if err := exclusiveDocument("profile", strings.TrimSpace(req.Profile), req.ProfileURL, false); err != nil {
		return convertRequest{}, err
	}
	return req, nil
}

// rawText flattens an inline JSON document field; an explicit null counts as
// absent.
func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	return s
}

// exclusiveDocument enforces the inline-or-URL rule for one document slot.
func exclusiveDocument(name, inline, docURL string, required bool) error {
	switch {
	case inline != "" && docURL != "":
		return requestError("INVALID_ARGUMENT",
			fmt.Sprintf("%s 与 %s_url 不能同时提供", name, name), "")
	case inline == "" && docURL == "" && required:
		return requestError("INVALID_ARGUMENT",
			fmt.Sprintf("缺少 %s（或 %s_url）", name, name), "")
	}
	return nil
}

func singleQuery(q url.Values, key string, required bool) (string, error) {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		if required {
			return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("缺少 %s 参数", key), "")
		}
		return "", nil
	}
	if len(values) != 1 {
		return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("%s 参数只能出现一次", key), "")
	}
	return values[0], nil
}
