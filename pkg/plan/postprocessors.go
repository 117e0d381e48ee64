package plan

import (
	"fmt"
	"strings"
)

// JSONExtractor stores a value from each JSON response in its scope into a variable,
// for use as ${variable} by later samplers of the same thread.
type JSONExtractor struct{ node }

// JSONExtractor builds an extractor evaluating query as JMESPath, e.g. "args.var".
func (b *Builder) JSONExtractor(variable, query string) (*JSONExtractor, error) {
	if strings.TrimSpace(variable) == "" {
		return nil, fmt.Errorf("json extractor: variable name is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("json extractor %q: query is required: %w", variable, ErrInvalidArgument)
	}
	n, err := b.newNode(KindJSONExtractor, JSONExtractorArgs{Variable: variable, Query: query}, nil)
	if err != nil {
		return nil, err
	}
	return &JSONExtractor{node: n}, nil
}

// JSONPath returns an extractor that evaluates its query as a JSON path ("$.a.b").
func (e *JSONExtractor) JSONPath() (*JSONExtractor, error) {
	n, err := e.mutate(SetQueryLanguage{Language: QueryJSONPath})
	if err != nil {
		return nil, err
	}
	return &JSONExtractor{node: n}, nil
}
