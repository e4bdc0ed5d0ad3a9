package formatting

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// FormatTestList formats a queue listing as YAML
func (f *YAMLFormatter) FormatTestList(tests []TestSummary) string {
	return f.marshal(map[string]interface{}{"tests": tests, "count": len(tests)})
}

// FormatTestDetail formats one test's status as YAML
func (f *YAMLFormatter) FormatTestDetail(test TestSummary) string {
	return f.marshal(test)
}

// FormatResult formats a completed test's result as YAML
func (f *YAMLFormatter) FormatResult(result ResultSummary) string {
	return f.marshal(result)
}

// FormatData formats generic data as YAML
func (f *YAMLFormatter) FormatData(data interface{}) error {
	fmt.Print(f.marshal(data))
	return nil
}

// FindTest finds a test by id in a listing
func (f *YAMLFormatter) FindTest(tests []TestSummary, testID string) *TestSummary {
	for _, test := range tests {
		if test.TestID == testID {
			return &test
		}
	}
	return nil
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

// marshal converts data to YAML string
func (f *YAMLFormatter) marshal(data interface{}) string {
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error: \"Failed to format YAML: %v\"\n", err)
	}
	return string(yamlBytes)
}
