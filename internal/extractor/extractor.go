// Package extractor pulls values out of JSON response bodies into variables.
package extractor

import (
	"fmt"

	"go.uber.org/zap"
)

// Language selects the query syntax of an Extractor.
type Language int

const (
	// JMESPath queries, e.g. "items[0].id".
	JMESPath Language = iota
	// JSONPath queries in gjson syntax, e.g. "$.items.0.id".
	JSONPath
)

func (l Language) String() string {
	switch l {
	case JMESPath:
		return "jmespath"
	case JSONPath:
		return "jsonpath"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// Extractor defines one extraction rule for a response body.
type Extractor struct {
	// Variable is the variable name to store the extracted value.
	Variable string

	// Query is evaluated against the decoded body.
	Query string

	Language Language

	// Default is stored when the query matches nothing.
	Default string
}

// Extract evaluates the rule against body. ok is false when nothing matched.
func (e Extractor) Extract(body []byte) (value string, ok bool, err error) {
	switch e.Language {
	case JSONPath:
		return findJSONPath(body, e.Query)
	default:
		return searchJMESPath(body, e.Query)
	}
}

// ExtractAll applies all extractors to the response body and returns extracted key-value pairs.
// Failed or empty matches store the extractor's Default and are logged at debug
// level; processing continues with the next extractor.
func ExtractAll(body []byte, extractors []Extractor, logger *zap.Logger) map[string]string {
	result := make(map[string]string, len(extractors))
	if len(extractors) == 0 {
		return result
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, ex := range extractors {
		value, ok, err := ex.Extract(body)
		switch {
		case err != nil:
			logger.Debug("extraction failed",
				zap.String("variable", ex.Variable),
				zap.String("query", ex.Query),
				zap.Stringer("language", ex.Language),
				zap.Error(err))
			value = ex.Default
		case !ok:
			logger.Debug("extraction matched nothing",
				zap.String("variable", ex.Variable),
				zap.String("query", ex.Query))
			value = ex.Default
		}
		result[ex.Variable] = value
	}

	return result
}
