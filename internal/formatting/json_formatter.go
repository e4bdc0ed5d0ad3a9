package formatting

import (
	"encoding/json"
	"fmt"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// FormatTestList formats a queue listing as JSON
func (f *JSONFormatter) FormatTestList(tests []TestSummary) string {
	return f.marshal(map[string]interface{}{"tests": tests, "count": len(tests)})
}

// FormatTestDetail formats one test's status as JSON
func (f *JSONFormatter) FormatTestDetail(test TestSummary) string {
	return f.marshal(test)
}

// FormatResult formats a completed test's result as JSON
func (f *JSONFormatter) FormatResult(result ResultSummary) string {
	return f.marshal(result)
}

// FormatData formats generic data as JSON
func (f *JSONFormatter) FormatData(data interface{}) error {
	fmt.Println(f.marshal(data))
	return nil
}

// FindTest finds a test by id in a listing
func (f *JSONFormatter) FindTest(tests []TestSummary, testID string) *TestSummary {
	for _, test := range tests {
		if test.TestID == testID {
			return &test
		}
	}
	return nil
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

// marshal converts data to JSON string with appropriate formatting
func (f *JSONFormatter) marshal(data interface{}) string {
	if f.options.Quiet {
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf(`{"error": "Failed to format JSON: %v"}`, err)
		}
		return string(jsonBytes)
	}
	return PrettyJSON(data)
}
