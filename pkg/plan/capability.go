package plan

import "strings"

// Capability is a set of zero-data markers declaring which containment slots a node
// may occupy.
type Capability uint8

const (
	// TestPlanChild marks elements that may sit directly under a TestPlan.
	TestPlanChild Capability = 1 << iota
	// ThreadGroupChild marks elements that may sit under a thread group or a sampler.
	ThreadGroupChild
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{TestPlanChild, "TestPlanChild"},
	{ThreadGroupChild, "ThreadGroupChild"},
}

// Has reports whether every tag in required is present in c.
func (c Capability) Has(required Capability) bool {
	return required != 0 && c&required == required
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, n := range capabilityNames {
		if c&n.c != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
