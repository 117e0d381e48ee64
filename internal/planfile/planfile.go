// Package planfile loads test plans from YAML documents.
//
// A plan file mirrors the builder API. The root key is test_plan, holding a
// list of elements; every element is a single-key mapping whose key is the
// element kind:
//
//	test_plan:
//	  - vars: {host: httpbin.org}
//	  - csv_dataset: users.csv
//	  - thread_group_simple:
//	      threads: 2
//	      iterations: 3
//	      children:
//	        - http_sampler:
//	            name: Echo ${user}
//	            url: https://${host}/post
//	            body: {user: "${user}"}
//	            content_type: APPLICATION_JSON
//	        - constant_timer: 100ms
//	  - html_reporter: out/report
//
// Files are decoded into yaml.Node trees and every element is created through
// plan.Builder, so plan files are subject to the same composition and type
// rules as code. Relative dataset and upload paths resolve against the
// directory of the plan file.
package planfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/crankplan/pkg/plan"
)

// ErrInvalidPlan reports a structurally invalid plan document.
var ErrInvalidPlan = errors.New("invalid plan file")

// LoadFile reads and builds the plan at path.
func LoadFile(b *plan.Builder, path string) (*plan.TestPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	tp, err := load(b, bytes.NewReader(data), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tp, nil
}

// Load builds a plan from r. Relative paths resolve against the working
// directory.
func Load(b *plan.Builder, r io.Reader) (*plan.TestPlan, error) {
	return load(b, r, "")
}

func load(b *plan.Builder, r io.Reader, baseDir string) (*plan.TestPlan, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document: %w", ErrInvalidPlan)
		}
		return nil, fmt.Errorf("parse plan file: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, invalidf(root, "document must be a mapping with a test_plan key")
	}

	var body *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Value != plan.KindTestPlan.String() {
			return nil, invalidf(key, "unknown top-level key %q", key.Value)
		}
		body = val
	}
	if body == nil {
		return nil, invalidf(root, "missing test_plan key")
	}

	l := &loader{b: b, baseDir: baseDir}
	children, err := l.elements(body)
	if err != nil {
		return nil, err
	}
	return b.TestPlan(children...)
}

type loader struct {
	b       *plan.Builder
	baseDir string
}

func invalidf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", n.Line, fmt.Sprintf(format, args...), ErrInvalidPlan)
}

func at(n *yaml.Node, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("line %d: %w", n.Line, err)
}

func (l *loader) path(p string) string {
	if p == "" || filepath.IsAbs(p) || l.baseDir == "" {
		return p
	}
	return filepath.Join(l.baseDir, p)
}

// elements decodes a list of single-key element mappings. A null list is
// empty.
func (l *loader) elements(n *yaml.Node) ([]plan.Element, error) {
	if n == nil || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, invalidf(n, "expected a list of elements")
	}
	out := make([]plan.Element, 0, len(n.Content))
	for _, item := range n.Content {
		el, err := l.element(item)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func (l *loader) element(n *yaml.Node) (plan.Element, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, invalidf(n, "an element is a mapping with exactly one kind key")
	}
	keyNode, val := n.Content[0], n.Content[1]
	kind, err := plan.ParseKind(keyNode.Value)
	if err != nil {
		return nil, invalidf(keyNode, "%v", err)
	}

	var el plan.Element
	switch kind {
	case plan.KindSetupThreadGroup, plan.KindTeardownThreadGroup,
		plan.KindThreadGroupSimple, plan.KindThreadGroupWithRampUpAndHold:
		el, err = l.threadGroup(kind, val)
	case plan.KindHTTPSampler:
		el, err = l.httpSampler(val)
	case plan.KindDummySampler:
		el, err = l.dummySampler(val)
	case plan.KindConstantTimer:
		var d time.Duration
		if d, err = duration(val); err == nil {
			el, err = l.b.ConstantTimer(d)
		}
	case plan.KindUniformRandomTimer:
		el, err = l.randomTimer(val)
	case plan.KindResponseAssertion:
		el, err = l.assertion(val)
	case plan.KindJSONExtractor:
		el, err = l.jsonExtractor(val)
	case plan.KindCSVDataset:
		var p string
		if p, err = scalar(val); err == nil {
			el, err = l.b.CSVDataset(l.path(p))
		}
	case plan.KindVars:
		el, err = l.vars(val)
	case plan.KindHTMLReporter:
		var dir string
		if val.Tag != "!!null" {
			dir, err = scalar(val)
		}
		if err == nil {
			el, err = l.b.HTMLReporter(dir)
		}
	case plan.KindJTLWriter:
		var p string
		if p, err = scalar(val); err == nil {
			el, err = l.b.JTLWriter(p)
		}
	default:
		return nil, invalidf(keyNode, "%s cannot be nested", kind)
	}
	if err != nil {
		return nil, at(keyNode, err)
	}
	return el, nil
}

// fields returns the mapping entries of n keyed by name, rejecting unknown
// keys.
func fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, invalidf(n, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		known := false
		for _, a := range allowed {
			if a == key {
				known = true
				break
			}
		}
		if !known {
			return nil, invalidf(n.Content[i], "unknown field %q (allowed: %s)", key, strings.Join(allowed, ", "))
		}
		if _, dup := out[key]; dup {
			return nil, invalidf(n.Content[i], "duplicate field %q", key)
		}
		out[key] = n.Content[i+1]
	}
	return out, nil
}

func scalar(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", invalidf(n, "expected a scalar value")
	}
	return n.Value, nil
}

func integer(n *yaml.Node) (int, error) {
	var v int
	if err := n.Decode(&v); err != nil {
		return 0, invalidf(n, "expected an integer, got %q", n.Value)
	}
	return v, nil
}

// duration accepts Go duration strings ("250ms") or a plain number of
// milliseconds.
func duration(n *yaml.Node) (time.Duration, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, invalidf(n, "expected a duration")
	}
	if n.Tag == "!!int" {
		ms, err := integer(n)
		if err != nil {
			return 0, err
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(n.Value)
	if err != nil {
		return 0, invalidf(n, "invalid duration %q", n.Value)
	}
	return d, nil
}

func (l *loader) threadGroup(kind plan.Kind, n *yaml.Node) (plan.Element, error) {
	// setUp/tearDown groups may be given as a bare child list.
	if n.Kind == yaml.SequenceNode || n.Tag == "!!null" {
		if kind != plan.KindSetupThreadGroup && kind != plan.KindTeardownThreadGroup {
			return nil, invalidf(n, "%s needs threads", kind)
		}
		n = &yaml.Node{Kind: yaml.MappingNode, Line: n.Line, Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "children", Line: n.Line}, n,
		}}
	}

	f, err := fields(n, "name", "threads", "iterations", "ramp_up", "hold", "children")
	if err != nil {
		return nil, err
	}
	children, err := l.elements(f["children"])
	if err != nil {
		return nil, err
	}

	var g *plan.ThreadGroup
	switch kind {
	case plan.KindSetupThreadGroup:
		g, err = l.b.SetupThreadGroup(children...)
	case plan.KindTeardownThreadGroup:
		g, err = l.b.TeardownThreadGroup(children...)
	case plan.KindThreadGroupSimple:
		threads, iterations := 1, 1
		if v, ok := f["threads"]; ok {
			if threads, err = integer(v); err != nil {
				return nil, err
			}
		}
		if v, ok := f["iterations"]; ok {
			if iterations, err = integer(v); err != nil {
				return nil, err
			}
		}
		g, err = l.b.ThreadGroupSimple(threads, iterations, children...)
	case plan.KindThreadGroupWithRampUpAndHold:
		threads := 1
		var rampUp, hold time.Duration
		if v, ok := f["threads"]; ok {
			if threads, err = integer(v); err != nil {
				return nil, err
			}
		}
		if v, ok := f["ramp_up"]; ok {
			if rampUp, err = duration(v); err != nil {
				return nil, err
			}
		}
		if v, ok := f["hold"]; ok {
			if hold, err = duration(v); err != nil {
				return nil, err
			}
		}
		g, err = l.b.ThreadGroupWithRampUpAndHold(threads, rampUp, hold, children...)
	}
	if err != nil {
		return nil, err
	}

	if v, ok := f["name"]; ok {
		name, err := scalar(v)
		if err != nil {
			return nil, err
		}
		if g, err = g.Named(name); err != nil {
			return nil, at(v, err)
		}
	}
	return g, nil
}

func (l *loader) httpSampler(n *yaml.Node) (plan.Element, error) {
	f, err := fields(n, "name", "url", "method", "headers", "body", "content_type", "multipart", "children")
	if err != nil {
		return nil, err
	}
	children, err := l.elements(f["children"])
	if err != nil {
		return nil, err
	}

	var name, url string
	if v, ok := f["name"]; ok {
		if name, err = scalar(v); err != nil {
			return nil, err
		}
	}
	if v, ok := f["url"]; ok {
		if url, err = scalar(v); err != nil {
			return nil, err
		}
	}
	if name == "" {
		name = url
	}
	s, err := l.b.HTTPSampler(name, url, children...)
	if err != nil {
		return nil, err
	}

	if v, ok := f["headers"]; ok {
		if v.Kind != yaml.MappingNode {
			return nil, invalidf(v, "headers must be a mapping")
		}
		for i := 0; i+1 < len(v.Content); i += 2 {
			// Decoded untyped so non-string values surface as type errors.
			var key, value any
			if err := v.Content[i].Decode(&key); err != nil {
				return nil, at(v.Content[i], err)
			}
			if err := v.Content[i+1].Decode(&value); err != nil {
				return nil, at(v.Content[i+1], err)
			}
			if s, err = s.Header(key, value); err != nil {
				return nil, at(v.Content[i], err)
			}
		}
	}

	ct := plan.ApplicationJSON
	if v, ok := f["content_type"]; ok {
		raw, err := scalar(v)
		if err != nil {
			return nil, err
		}
		if ct, err = plan.ParseContentType(raw); err != nil {
			return nil, at(v, err)
		}
	}

	if v, ok := f["body"]; ok {
		var body any
		if err := v.Decode(&body); err != nil {
			return nil, at(v, err)
		}
		if s, err = s.Post(body, ct); err != nil {
			return nil, at(v, err)
		}
	}

	if v, ok := f["multipart"]; ok {
		if v.Kind != yaml.SequenceNode {
			return nil, invalidf(v, "multipart must be a list of parts")
		}
		for _, part := range v.Content {
			pf, err := fields(part, "name", "path", "content_type")
			if err != nil {
				return nil, err
			}
			var partName, partPath string
			partCT := plan.ApplicationOctetStream
			if pv, ok := pf["name"]; ok {
				if partName, err = scalar(pv); err != nil {
					return nil, err
				}
			}
			if pv, ok := pf["path"]; ok {
				if partPath, err = scalar(pv); err != nil {
					return nil, err
				}
			}
			if pv, ok := pf["content_type"]; ok {
				raw, err := scalar(pv)
				if err != nil {
					return nil, err
				}
				if partCT, err = plan.ParseContentType(raw); err != nil {
					return nil, at(pv, err)
				}
			}
			if s, err = s.PostMultipartFormData(partName, l.path(partPath), partCT); err != nil {
				return nil, at(part, err)
			}
		}
	}

	// An explicit method wins over the POST implied by a body.
	if v, ok := f["method"]; ok {
		method, err := scalar(v)
		if err != nil {
			return nil, err
		}
		if s, err = s.Method(method); err != nil {
			return nil, at(v, err)
		}
	}
	return s, nil
}

func (l *loader) dummySampler(n *yaml.Node) (plan.Element, error) {
	f, err := fields(n, "name", "response_body", "response_time", "children")
	if err != nil {
		return nil, err
	}
	children, err := l.elements(f["children"])
	if err != nil {
		return nil, err
	}

	var name, body string
	if v, ok := f["name"]; ok {
		if name, err = scalar(v); err != nil {
			return nil, err
		}
	}
	if v, ok := f["response_body"]; ok {
		if body, err = scalar(v); err != nil {
			return nil, err
		}
	}
	s, err := l.b.DummySampler(name, body, children...)
	if err != nil {
		return nil, err
	}
	if v, ok := f["response_time"]; ok {
		d, err := duration(v)
		if err != nil {
			return nil, err
		}
		if s, err = s.ResponseTime(d); err != nil {
			return nil, at(v, err)
		}
	}
	return s, nil
}

func (l *loader) randomTimer(n *yaml.Node) (plan.Element, error) {
	f, err := fields(n, "min", "max")
	if err != nil {
		return nil, err
	}
	var lo, hi time.Duration
	if v, ok := f["min"]; ok {
		if lo, err = duration(v); err != nil {
			return nil, err
		}
	}
	if v, ok := f["max"]; ok {
		if hi, err = duration(v); err != nil {
			return nil, err
		}
	}
	return l.b.UniformRandomTimer(lo, hi)
}

func (l *loader) assertion(n *yaml.Node) (plan.Element, error) {
	var substrings []string
	switch n.Kind {
	case yaml.ScalarNode:
		substrings = []string{n.Value}
	case yaml.SequenceNode:
		if err := n.Decode(&substrings); err != nil {
			return nil, at(n, err)
		}
	case yaml.MappingNode:
		f, err := fields(n, "contains")
		if err != nil {
			return nil, err
		}
		if v, ok := f["contains"]; ok {
			if err := v.Decode(&substrings); err != nil {
				return nil, at(v, err)
			}
		}
	default:
		return nil, invalidf(n, "response_assertion needs substrings")
	}

	a, err := l.b.ResponseAssertion()
	if err != nil {
		return nil, err
	}
	return a.ContainsSubstrings(substrings...)
}

func (l *loader) jsonExtractor(n *yaml.Node) (plan.Element, error) {
	f, err := fields(n, "variable", "query", "language")
	if err != nil {
		return nil, err
	}
	var variable, query, language string
	if v, ok := f["variable"]; ok {
		if variable, err = scalar(v); err != nil {
			return nil, err
		}
	}
	if v, ok := f["query"]; ok {
		if query, err = scalar(v); err != nil {
			return nil, err
		}
	}
	if v, ok := f["language"]; ok {
		if language, err = scalar(v); err != nil {
			return nil, err
		}
	}

	ex, err := l.b.JSONExtractor(variable, query)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(language) {
	case "", "jmespath":
		return ex, nil
	case "jsonpath":
		return ex.JSONPath()
	default:
		return nil, invalidf(f["language"], "unknown query language %q (use jmespath or jsonpath)", language)
	}
}

func (l *loader) vars(n *yaml.Node) (plan.Element, error) {
	if n.Kind != yaml.MappingNode {
		return nil, invalidf(n, "vars must be a mapping")
	}
	v, err := l.b.Vars(nil)
	if err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var key, value any
		if err := n.Content[i].Decode(&key); err != nil {
			return nil, at(n.Content[i], err)
		}
		if err := n.Content[i+1].Decode(&value); err != nil {
			return nil, at(n.Content[i+1], err)
		}
		if v, err = v.Set(key, value); err != nil {
			return nil, at(n.Content[i], err)
		}
	}
	return v, nil
}
