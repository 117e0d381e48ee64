package plan

import (
	"context"
	"time"
)

// Native is an opaque handle to the delegate's own representation of an element.
// The builder never inspects it.
type Native any

// Delegate turns element descriptions into executable objects and runs them.
//
// Every method must treat handles as immutable values: SetChildren and Mutate return a
// fresh handle and leave their input untouched.
type Delegate interface {
	// Materialize creates the native object for a newly constructed element.
	Materialize(kind Kind, args Args) (Native, error)
	// SetChildren returns h with its child set replaced by children, in order.
	SetChildren(h Native, children []Native) (Native, error)
	// Mutate applies a fluent per-kind change and returns the refreshed handle.
	Mutate(h Native, m Mutation) (Native, error)
	// Run executes the plan rooted at root and blocks until every thread group has
	// finished. Internal failures are reported as *ExecutionError.
	Run(ctx context.Context, root Native) (Result, error)
}

// Args carries the positional constructor configuration of one element kind.
type Args interface{ isArgs() }

type (
	TestPlanArgs struct{}

	ThreadGroupArgs struct {
		Name       string
		Threads    int
		Iterations int
		RampUp     time.Duration
		Hold       time.Duration
	}

	HTTPSamplerArgs struct {
		Name string
		URL  string
	}

	DummySamplerArgs struct {
		Name         string
		ResponseBody string
	}

	// TimerArgs describes both timer kinds; a constant timer has Min == Max.
	TimerArgs struct {
		Min time.Duration
		Max time.Duration
	}

	ResponseAssertionArgs struct{}

	JSONExtractorArgs struct {
		Variable string
		Query    string
	}

	CSVDatasetArgs struct {
		Path string
	}

	VarsArgs struct{}

	HTMLReporterArgs struct {
		Dir string
	}

	JTLWriterArgs struct {
		Path string
	}
)

func (TestPlanArgs) isArgs()          {}
func (ThreadGroupArgs) isArgs()       {}
func (HTTPSamplerArgs) isArgs()       {}
func (DummySamplerArgs) isArgs()      {}
func (TimerArgs) isArgs()             {}
func (ResponseAssertionArgs) isArgs() {}
func (JSONExtractorArgs) isArgs()     {}
func (CSVDatasetArgs) isArgs()        {}
func (VarsArgs) isArgs()              {}
func (HTMLReporterArgs) isArgs()      {}
func (JTLWriterArgs) isArgs()         {}

// Mutation is a fluent change applied to an existing native handle.
type Mutation interface{ isMutation() }

// QueryLanguage selects how a JSONExtractor query is evaluated.
type QueryLanguage int

const (
	// QueryJMESPath evaluates queries such as "args.var" or "items[0].id".
	QueryJMESPath QueryLanguage = iota
	// QueryJSONPath evaluates "$.args.var" style paths.
	QueryJSONPath
)

type (
	SetHeader struct {
		Key   string
		Value string
	}

	SetBody struct {
		Body        string
		ContentType ContentType
	}

	AddMultipartFile struct {
		Name        string
		Path        string
		ContentType ContentType
	}

	SetMethod struct {
		Method string
	}

	SetVar struct {
		Key   string
		Value string
	}

	AddSubstrings struct {
		Substrings []string
	}

	SetResponseTime struct {
		ResponseTime time.Duration
	}

	SetQueryLanguage struct {
		Language QueryLanguage
	}

	Rename struct {
		Name string
	}
)

func (SetHeader) isMutation()        {}
func (SetBody) isMutation()          {}
func (AddMultipartFile) isMutation() {}
func (SetMethod) isMutation()        {}
func (SetVar) isMutation()           {}
func (AddSubstrings) isMutation()    {}
func (SetResponseTime) isMutation()  {}
func (SetQueryLanguage) isMutation() {}
func (Rename) isMutation()           {}

// SampleTimes aggregates the elapsed times of a set of samples.
type SampleTimes struct {
	Count  int64
	Errors int64
	Mean   time.Duration
	Min    time.Duration
	Median time.Duration
	P90    time.Duration
	P95    time.Duration
	P99    time.Duration
	Max    time.Duration
}

// Result is the immutable snapshot a Delegate produces once per run.
type Result interface {
	// Overall aggregates every sample of the run.
	Overall() SampleTimes
	// Label aggregates the samples recorded under one sampler name.
	Label(name string) (SampleTimes, bool)
	// Labels lists sampler names in first-seen order.
	Labels() []string
	// Duration is the wall-clock time of the whole run.
	Duration() time.Duration
}
