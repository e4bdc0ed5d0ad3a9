// Package formatting provides unified output formatting for the probe's
// CLI and HTTP front door: the same queue listing, test detail and test
// result data rendered as console text, JSON, YAML or a table, selected
// by a single Options value.
package formatting

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// TestSummary is one row of a queue listing or a single-test status
// response (spec.md §4.2 "QueueStatus" / §4.1 "GetStatus").
type TestSummary struct {
	TestID   string
	State    string
	TestType string
	Bucket   string
	Error    string
}

// ResultSummary is the aggregate outcome of one completed test run
// (spec.md §4.6 "TestResult").
type ResultSummary struct {
	TestID          string
	ScenarioCount   int
	ScenariosPassed int
	ScenariosFailed int
	Duration        string
	FailureSummary  string
}

// Formatter renders the probe's test listings and results in one output
// format.
type Formatter interface {
	// Test listing and detail formatting
	FormatTestList(tests []TestSummary) string
	FormatTestDetail(test TestSummary) string
	FindTest(tests []TestSummary, testID string) *TestSummary

	// Result formatting
	FormatResult(result ResultSummary) string

	// Generic data formatting (for CLI tool results)
	FormatData(data interface{}) error

	// Configuration
	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

// factory implements the Factory interface
type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}
