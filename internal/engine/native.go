package engine

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/torosent/crankplan/internal/httpclient"
	"github.com/torosent/crankplan/pkg/plan"
)

// ErrUnsupported reports a handle, argument set or mutation the engine cannot
// apply to the element kind it was given.
var ErrUnsupported = errors.New("unsupported by engine")

// element is the engine's native handle. A handle is never modified once it
// has been returned; SetChildren and Mutate work on copies.
type element struct {
	kind plan.Kind
	name string

	// thread groups
	threads    int
	iterations int
	rampUp     time.Duration
	hold       time.Duration

	// samplers
	url          string
	method       string
	headers      []httpclient.Header
	body         string
	contentType  string
	parts        []httpclient.Part
	responseBody string
	responseTime time.Duration

	// timers
	min time.Duration
	max time.Duration

	// assertions and post processors
	substrings []string
	variable   string
	query      string
	language   plan.QueryLanguage

	// datasets, vars and reporters
	path string
	vars map[string]string

	children []*element
}

func (e *element) clone() *element {
	cp := *e
	cp.headers = slices.Clone(e.headers)
	cp.parts = slices.Clone(e.parts)
	cp.substrings = slices.Clone(e.substrings)
	cp.vars = maps.Clone(e.vars)
	cp.children = slices.Clone(e.children)
	return &cp
}

func materialize(kind plan.Kind, args plan.Args) (*element, error) {
	el := &element{kind: kind}
	mismatch := func() error {
		return fmt.Errorf("engine: %T cannot describe %s: %w", args, kind, ErrUnsupported)
	}

	switch a := args.(type) {
	case plan.TestPlanArgs:
		if kind != plan.KindTestPlan {
			return nil, mismatch()
		}
	case plan.ThreadGroupArgs:
		if !kind.IsThreadGroup() {
			return nil, mismatch()
		}
		el.name = a.Name
		el.threads = a.Threads
		el.iterations = a.Iterations
		el.rampUp = a.RampUp
		el.hold = a.Hold
	case plan.HTTPSamplerArgs:
		if kind != plan.KindHTTPSampler {
			return nil, mismatch()
		}
		el.name = a.Name
		el.url = a.URL
		el.method = http.MethodGet
	case plan.DummySamplerArgs:
		if kind != plan.KindDummySampler {
			return nil, mismatch()
		}
		el.name = a.Name
		el.responseBody = a.ResponseBody
	case plan.TimerArgs:
		if kind != plan.KindConstantTimer && kind != plan.KindUniformRandomTimer {
			return nil, mismatch()
		}
		el.min = a.Min
		el.max = a.Max
	case plan.ResponseAssertionArgs:
		if kind != plan.KindResponseAssertion {
			return nil, mismatch()
		}
	case plan.JSONExtractorArgs:
		if kind != plan.KindJSONExtractor {
			return nil, mismatch()
		}
		el.variable = a.Variable
		el.query = a.Query
	case plan.CSVDatasetArgs:
		if kind != plan.KindCSVDataset {
			return nil, mismatch()
		}
		el.path = a.Path
	case plan.VarsArgs:
		if kind != plan.KindVars {
			return nil, mismatch()
		}
		el.vars = map[string]string{}
	case plan.HTMLReporterArgs:
		if kind != plan.KindHTMLReporter {
			return nil, mismatch()
		}
		el.path = a.Dir
	case plan.JTLWriterArgs:
		if kind != plan.KindJTLWriter {
			return nil, mismatch()
		}
		el.path = a.Path
	default:
		return nil, mismatch()
	}
	return el, nil
}

func (e *element) mutate(m plan.Mutation) (*element, error) {
	unsupported := func() error {
		return fmt.Errorf("engine: %T does not apply to %s: %w", m, e.kind, ErrUnsupported)
	}
	out := e.clone()

	switch v := m.(type) {
	case plan.SetHeader:
		if e.kind != plan.KindHTTPSampler {
			return nil, unsupported()
		}
		out.headers = append(out.headers, httpclient.Header{Key: v.Key, Value: v.Value})
	case plan.SetBody:
		if e.kind != plan.KindHTTPSampler {
			return nil, unsupported()
		}
		out.body = v.Body
		out.contentType = v.ContentType.String()
		out.parts = nil
		out.method = http.MethodPost
	case plan.AddMultipartFile:
		if e.kind != plan.KindHTTPSampler {
			return nil, unsupported()
		}
		out.body = ""
		out.contentType = ""
		out.parts = append(out.parts, httpclient.Part{
			Name:        v.Name,
			Path:        v.Path,
			ContentType: v.ContentType.String(),
		})
		out.method = http.MethodPost
	case plan.SetMethod:
		if e.kind != plan.KindHTTPSampler {
			return nil, unsupported()
		}
		out.method = v.Method
	case plan.SetVar:
		if e.kind != plan.KindVars {
			return nil, unsupported()
		}
		out.vars[v.Key] = v.Value
	case plan.AddSubstrings:
		if e.kind != plan.KindResponseAssertion {
			return nil, unsupported()
		}
		out.substrings = append(out.substrings, v.Substrings...)
	case plan.SetResponseTime:
		if e.kind != plan.KindDummySampler {
			return nil, unsupported()
		}
		out.responseTime = v.ResponseTime
	case plan.SetQueryLanguage:
		if e.kind != plan.KindJSONExtractor {
			return nil, unsupported()
		}
		out.language = v.Language
	case plan.Rename:
		if !e.kind.IsThreadGroup() && !e.kind.IsSampler() {
			return nil, unsupported()
		}
		out.name = v.Name
	default:
		return nil, unsupported()
	}
	return out, nil
}

func asElement(h plan.Native) (*element, error) {
	el, ok := h.(*element)
	if !ok || el == nil {
		return nil, fmt.Errorf("engine: foreign handle %T: %w", h, ErrUnsupported)
	}
	return el, nil
}
