package extractor

import (
	"errors"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("response is not valid JSON")

// findJSONPath extracts a value from JSON using gjson with support for $.field and field syntax.
func findJSONPath(body []byte, path string) (string, bool, error) {
	if !gjson.ValidBytes(body) {
		return "", false, errInvalidJSON
	}

	// Strip leading $. if present, or handle bare $ to return entire JSON
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			path = path[2:]
		} else if len(path) == 1 {
			path = "@this"
		}
	}

	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return "", false, nil
	}
	return result.String(), true, nil
}
