package formatting

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{
		options: options,
	}
}

// FormatTestList formats a queue listing for console output
func (f *ConsoleFormatter) FormatTestList(tests []TestSummary) string {
	if len(tests) == 0 {
		return "No tests in queue."
	}

	var output []string
	output = append(output, fmt.Sprintf("Tests in queue (%d):", len(tests)))
	for i, test := range tests {
		output = append(output, fmt.Sprintf("  %d. %-36s %-12s %s", i+1, test.TestID, test.State, test.TestType))
	}
	return strings.Join(output, "\n")
}

// FormatTestDetail formats detailed status for one test
func (f *ConsoleFormatter) FormatTestDetail(test TestSummary) string {
	var output []string
	output = append(output, fmt.Sprintf("Test: %s", test.TestID))
	output = append(output, fmt.Sprintf("State: %s", test.State))
	if test.TestType != "" {
		output = append(output, fmt.Sprintf("Type: %s", test.TestType))
	}
	if test.Bucket != "" {
		output = append(output, fmt.Sprintf("Bucket: %s", test.Bucket))
	}
	if test.Error != "" {
		output = append(output, fmt.Sprintf("Error: %s", test.Error))
	}
	return strings.Join(output, "\n")
}

// FormatResult formats a completed test's aggregate result
func (f *ConsoleFormatter) FormatResult(result ResultSummary) string {
	var output []string
	output = append(output, fmt.Sprintf("Test: %s", result.TestID))
	output = append(output, fmt.Sprintf("Scenarios: %d passed, %d failed, %d total",
		result.ScenariosPassed, result.ScenariosFailed, result.ScenarioCount))
	output = append(output, fmt.Sprintf("Duration: %s", result.Duration))
	if result.FailureSummary != "" {
		output = append(output, fmt.Sprintf("Failures: %s", result.FailureSummary))
	}
	return strings.Join(output, "\n")
}

// FormatData formats generic data (fallback to simple text representation)
func (f *ConsoleFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		fmt.Println(f.prettyJSON(d))
	case []interface{}:
		fmt.Println(f.prettyJSON(d))
	case string:
		fmt.Println(d)
	default:
		fmt.Printf("%v\n", d)
	}
	return nil
}

// FindTest finds a test by id in a listing
func (f *ConsoleFormatter) FindTest(tests []TestSummary, testID string) *TestSummary {
	for _, test := range tests {
		if test.TestID == testID {
			return &test
		}
	}
	return nil
}

// SetOptions updates the formatter options
func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}

// prettyJSON formats JSON data with indentation
func (f *ConsoleFormatter) prettyJSON(v interface{}) string {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting JSON: %v", err)
	}
	return string(jsonBytes)
}
