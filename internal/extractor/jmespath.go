package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmespath/go-jmespath"
)

// searchJMESPath decodes body and evaluates a JMESPath expression against it.
// Scalars are rendered as plain text, objects and arrays as compact JSON.
func searchJMESPath(body []byte, query string) (string, bool, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false, errInvalidJSON
	}

	result, err := jmespath.Search(query, data)
	if err != nil {
		return "", false, fmt.Errorf("jmespath %q: %w", query, err)
	}

	switch v := result.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false, fmt.Errorf("encode jmespath result: %w", err)
		}
		return string(encoded), true, nil
	}
}
