package plan

import "fmt"

// ResponseAssertion marks the samples in its scope as failed when the response body
// does not satisfy its conditions.
type ResponseAssertion struct{ node }

func (b *Builder) ResponseAssertion() (*ResponseAssertion, error) {
	n, err := b.newNode(KindResponseAssertion, ResponseAssertionArgs{}, nil)
	if err != nil {
		return nil, err
	}
	return &ResponseAssertion{node: n}, nil
}

// ContainsSubstrings returns an assertion that also requires every one of substrings
// to appear in the response body.
func (a *ResponseAssertion) ContainsSubstrings(substrings ...string) (*ResponseAssertion, error) {
	if len(substrings) == 0 {
		return nil, fmt.Errorf("contains substrings: nothing to look for: %w", ErrInvalidArgument)
	}
	n, err := a.mutate(AddSubstrings{Substrings: append([]string(nil), substrings...)})
	if err != nil {
		return nil, err
	}
	return &ResponseAssertion{node: n}, nil
}
