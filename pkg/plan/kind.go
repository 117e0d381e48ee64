package plan

import "fmt"

// Kind identifies the concrete element type of a node. It is fixed when the node is
// constructed.
type Kind int

const (
	KindTestPlan Kind = iota
	KindSetupThreadGroup
	KindTeardownThreadGroup
	KindThreadGroupSimple
	KindThreadGroupWithRampUpAndHold
	KindHTTPSampler
	KindDummySampler
	KindConstantTimer
	KindUniformRandomTimer
	KindResponseAssertion
	KindJSONExtractor
	KindCSVDataset
	KindVars
	KindHTMLReporter
	KindJTLWriter
)

type kindInfo struct {
	label   string
	noun    string
	tags    Capability
	accepts Capability
}

// kinds is the fixed classification of every element kind along the two axes:
// the slots it may occupy (tags) and what it takes as children (accepts).
// A zero accepts value marks a terminal kind.
var kinds = [...]kindInfo{
	KindTestPlan:                     {label: "test_plan", noun: "a test plan", accepts: TestPlanChild},
	KindSetupThreadGroup:             {label: "setup_thread_group", noun: "a thread group", tags: TestPlanChild, accepts: ThreadGroupChild},
	KindTeardownThreadGroup:          {label: "teardown_thread_group", noun: "a thread group", tags: TestPlanChild, accepts: ThreadGroupChild},
	KindThreadGroupSimple:            {label: "thread_group_simple", noun: "a thread group", tags: TestPlanChild, accepts: ThreadGroupChild},
	KindThreadGroupWithRampUpAndHold: {label: "thread_group_with_ramp_up_and_hold", noun: "a thread group", tags: TestPlanChild, accepts: ThreadGroupChild},
	KindHTTPSampler:                  {label: "http_sampler", noun: "a sampler", tags: ThreadGroupChild, accepts: ThreadGroupChild},
	KindDummySampler:                 {label: "dummy_sampler", noun: "a sampler", tags: ThreadGroupChild, accepts: ThreadGroupChild},
	KindConstantTimer:                {label: "constant_timer", noun: "a timer", tags: ThreadGroupChild},
	KindUniformRandomTimer:           {label: "uniform_random_timer", noun: "a timer", tags: ThreadGroupChild},
	KindResponseAssertion:            {label: "response_assertion", noun: "an assertion", tags: ThreadGroupChild},
	KindJSONExtractor:                {label: "json_extractor", noun: "a post processor", tags: ThreadGroupChild},
	KindCSVDataset:                   {label: "csv_dataset", noun: "a csv data set", tags: TestPlanChild | ThreadGroupChild},
	KindVars:                         {label: "vars", noun: "vars", tags: TestPlanChild},
	KindHTMLReporter:                 {label: "html_reporter", noun: "a reporter", tags: TestPlanChild},
	KindJTLWriter:                    {label: "jtl_writer", noun: "a reporter", tags: TestPlanChild},
}

func (k Kind) valid() bool { return k >= 0 && int(k) < len(kinds) }

// String returns the snake_case label of the kind, e.g. "http_sampler".
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kinds[k].label
}

// Noun returns the short phrase used in composition errors, e.g. "a timer".
func (k Kind) Noun() string {
	if !k.valid() {
		return "an unknown element"
	}
	return kinds[k].noun
}

// Capabilities reports the slots a node of this kind may legally occupy.
func (k Kind) Capabilities() Capability {
	if !k.valid() {
		return 0
	}
	return kinds[k].tags
}

// Accepts reports the capability every child of this kind must hold. Zero means the
// kind is terminal.
func (k Kind) Accepts() Capability {
	if !k.valid() {
		return 0
	}
	return kinds[k].accepts
}

// Terminal reports whether the kind refuses all children.
func (k Kind) Terminal() bool { return k.Accepts() == 0 }

// IsThreadGroup reports whether the kind is one of the thread group variants.
func (k Kind) IsThreadGroup() bool {
	switch k {
	case KindSetupThreadGroup, KindTeardownThreadGroup, KindThreadGroupSimple, KindThreadGroupWithRampUpAndHold:
		return true
	}
	return false
}

// IsSampler reports whether the kind produces timed samples.
func (k Kind) IsSampler() bool { return k == KindHTTPSampler || k == KindDummySampler }

// ParseKind resolves a label produced by Kind.String.
func ParseKind(label string) (Kind, error) {
	for i := range kinds {
		if kinds[i].label == label {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown element kind %q", label)
}
