package matchers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/format"
)

func readBody(actual any) (data []byte, err error) {
	switch actual := actual.(type) {
	case []byte:
		return actual, nil
	case string:
		return []byte(actual), nil
	case *http.Response:
		defer actual.Body.Close()
		return io.ReadAll(actual.Body)
	default:
		return nil, fmt.Errorf("expected []byte, string or *http.Response. Got:\n%s", format.Object(actual, 1))
	}
}

func parseJSONObject(actual any) (object map[string]any, err error) {
	data, err := readBody(actual)
	if err != nil {
		return
	}
	err = json.Unmarshal(data, &object)
	if err != nil {
		err = fmt.Errorf("failed to parse JSON object: %w", err)
	}
	return
}

// HaveJSONObject decodes a body into a map[string]any and matches it, so
// tests can assert on the wire representation rather than a decoded struct.
func HaveJSONObject(matcher OmegaMatcher) OmegaMatcher {
	return WithTransform(parseJSONObject, matcher)
}

// JSONValue is value as it looks after a JSON round trip, e.g. float64 for
// every number.
func JSONValue(value any) (output any) {
	serializedValue, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	err = json.Unmarshal(serializedValue, &output)
	if err != nil {
		panic(err)
	}
	return output
}
