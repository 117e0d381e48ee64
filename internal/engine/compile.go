package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/torosent/crankplan/internal/extractor"
	"github.com/torosent/crankplan/internal/feeder"
	"github.com/torosent/crankplan/internal/httpclient"
	"github.com/torosent/crankplan/pkg/plan"
)

type phase int

const (
	phaseSetup phase = iota
	phaseMain
	phaseTeardown
)

func (p phase) String() string {
	switch p {
	case phaseSetup:
		return "setup"
	case phaseTeardown:
		return "teardown"
	default:
		return "main"
	}
}

// program is a test plan compiled for one run. Datasets are opened per run so
// every run starts from the first row.
type program struct {
	vars     map[string]string
	datasets []*feeder.CSVFeeder
	htmlDirs []string
	jtlPaths []string
	phases   [3][]*group
}

type group struct {
	index      int
	name       string
	kind       plan.Kind
	threads    int
	iterations int
	rampUp     time.Duration
	hold       time.Duration
	datasets   []*feeder.CSVFeeder
	steps      []*step
}

// scope collects the timers, post processors and assertions that apply to a
// sampler: those declared next to it plus those of its ancestors.
type scope struct {
	timers     []timer
	extractors []extractor.Extractor
	assertions [][]string
}

type timer struct {
	min time.Duration
	max time.Duration
}

func (s scope) with(o scope) scope {
	return scope{
		timers:     append(slices.Clone(s.timers), o.timers...),
		extractors: append(slices.Clone(s.extractors), o.extractors...),
		assertions: append(slices.Clone(s.assertions), o.assertions...),
	}
}

type step struct {
	el       *element
	request  *httpclient.RequestBuilder
	datasets []*feeder.CSVFeeder
	scope    scope
	children []*step
}

func compile(root *element) (*program, error) {
	if root.kind != plan.KindTestPlan {
		return nil, fmt.Errorf("engine: run root is %s, want %s: %w", root.kind, plan.KindTestPlan, ErrUnsupported)
	}

	prog := &program{vars: map[string]string{}}
	index := 0
	for _, child := range root.children {
		switch {
		case child.kind == plan.KindVars:
			for k, v := range child.vars {
				prog.vars[k] = v
			}
		case child.kind == plan.KindCSVDataset:
			f, err := feeder.NewCSVFeeder(child.path)
			if err != nil {
				return nil, fmt.Errorf("csv data set %s: %w", child.path, err)
			}
			prog.datasets = append(prog.datasets, f)
		case child.kind == plan.KindHTMLReporter:
			prog.htmlDirs = append(prog.htmlDirs, child.path)
		case child.kind == plan.KindJTLWriter:
			prog.jtlPaths = append(prog.jtlPaths, child.path)
		case child.kind.IsThreadGroup():
			g, err := compileGroup(child, index)
			if err != nil {
				return nil, err
			}
			index++
			p := phaseMain
			switch child.kind {
			case plan.KindSetupThreadGroup:
				p = phaseSetup
			case plan.KindTeardownThreadGroup:
				p = phaseTeardown
			}
			prog.phases[p] = append(prog.phases[p], g)
		default:
			return nil, fmt.Errorf("engine: %s under a test plan: %w", child.kind, ErrUnsupported)
		}
	}
	return prog, nil
}

func compileGroup(el *element, index int) (*group, error) {
	g := &group{
		index:      index,
		name:       el.name,
		kind:       el.kind,
		threads:    el.threads,
		iterations: el.iterations,
		rampUp:     el.rampUp,
		hold:       el.hold,
	}

	own, datasets, samplers, err := partition(el.children)
	if err != nil {
		return nil, fmt.Errorf("thread group %q: %w", el.name, err)
	}
	g.datasets = datasets
	for _, s := range samplers {
		st, err := compileStep(s, own)
		if err != nil {
			return nil, fmt.Errorf("thread group %q: %w", el.name, err)
		}
		g.steps = append(g.steps, st)
	}
	return g, nil
}

func compileStep(el *element, inherited scope) (*step, error) {
	own, datasets, samplers, err := partition(el.children)
	if err != nil {
		return nil, fmt.Errorf("sampler %q: %w", el.name, err)
	}
	st := &step{el: el, datasets: datasets, scope: inherited.with(own)}

	if el.kind == plan.KindHTTPSampler {
		spec := httpclient.Spec{
			Method:      el.method,
			URL:         el.url,
			Headers:     el.headers,
			Body:        []byte(el.body),
			ContentType: el.contentType,
			Parts:       el.parts,
		}
		st.request, err = httpclient.NewRequestBuilder(spec)
		if err != nil {
			return nil, fmt.Errorf("sampler %q: %w", el.name, err)
		}
	}

	for _, s := range samplers {
		child, err := compileStep(s, st.scope)
		if err != nil {
			return nil, err
		}
		st.children = append(st.children, child)
	}
	return st, nil
}

// partition splits the children of a thread group or sampler into the scope
// they declare, their datasets and nested samplers, keeping declaration order.
func partition(children []*element) (scope, []*feeder.CSVFeeder, []*element, error) {
	var (
		own      scope
		datasets []*feeder.CSVFeeder
		samplers []*element
	)
	for _, child := range children {
		switch child.kind {
		case plan.KindConstantTimer, plan.KindUniformRandomTimer:
			own.timers = append(own.timers, timer{min: child.min, max: child.max})
		case plan.KindJSONExtractor:
			lang := extractor.JMESPath
			if child.language == plan.QueryJSONPath {
				lang = extractor.JSONPath
			}
			own.extractors = append(own.extractors, extractor.Extractor{
				Variable: child.variable,
				Query:    child.query,
				Language: lang,
			})
		case plan.KindResponseAssertion:
			own.assertions = append(own.assertions, slices.Clone(child.substrings))
		case plan.KindCSVDataset:
			f, err := feeder.NewCSVFeeder(child.path)
			if err != nil {
				return scope{}, nil, nil, fmt.Errorf("csv data set %s: %w", child.path, err)
			}
			datasets = append(datasets, f)
		case plan.KindHTTPSampler, plan.KindDummySampler:
			samplers = append(samplers, child)
		default:
			return scope{}, nil, nil, fmt.Errorf("engine: %s inside a thread group: %w", child.kind, ErrUnsupported)
		}
	}
	return own, datasets, samplers, nil
}
