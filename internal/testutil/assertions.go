package testutil

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// AssertJSONEqual asserts that two JSON strings are semantically equal.
func AssertJSONEqual(t *testing.T, expected, actual string) {
	t.Helper()

	var expectedJSON, actualJSON interface{}

	if err := json.Unmarshal([]byte(expected), &expectedJSON); err != nil {
		t.Fatalf("failed to parse expected JSON: %v", err)
	}

	if err := json.Unmarshal([]byte(actual), &actualJSON); err != nil {
		t.Fatalf("failed to parse actual JSON: %v", err)
	}

	if !reflect.DeepEqual(expectedJSON, actualJSON) {
		expectedPretty, _ := json.MarshalIndent(expectedJSON, "", "  ")
		actualPretty, _ := json.MarshalIndent(actualJSON, "", "  ")
		t.Errorf("JSON not equal:\nExpected:\n%s\n\nActual:\n%s", expectedPretty, actualPretty)
	}
}

// AssertLines asserts that output consists of exactly the expected lines,
// ignoring a trailing newline.
func AssertLines(t *testing.T, expected []string, output string) {
	t.Helper()

	trimmed := strings.TrimSuffix(output, "\n")
	var actual []string
	if trimmed != "" {
		actual = strings.Split(trimmed, "\n")
	}
	if len(expected) == 0 && len(actual) == 0 {
		return
	}
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("lines not equal:\nExpected:\n%s\n\nActual:\n%s",
			strings.Join(expected, "\n"), strings.Join(actual, "\n"))
	}
}
