package formatting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	probestrings "testprobe/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatTestList formats a queue listing as a table
func (f *TableFormatter) FormatTestList(tests []TestSummary) string {
	if len(tests) == 0 {
		return f.formatEmptyMessage("No tests in queue")
	}

	t := f.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST ID"),
		text.FgHiCyan.Sprint("STATE"),
		text.FgHiCyan.Sprint("TYPE"),
		text.FgHiCyan.Sprint("BUCKET"),
	})

	for _, test := range tests {
		t.AppendRow(table.Row{
			text.FgHiCyan.Sprint(test.TestID),
			f.formatState(test.State),
			test.TestType,
			test.Bucket,
		})
	}

	var result strings.Builder
	t.SetOutputMirror(&result)
	t.Render()

	result.WriteString(fmt.Sprintf("\n%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(len(tests)),
		text.FgHiBlue.Sprint("tests")))

	return result.String()
}

// FormatTestDetail formats one test's status as a field/value table
func (f *TableFormatter) FormatTestDetail(test TestSummary) string {
	t := f.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("FIELD"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	t.AppendRow(table.Row{"Test ID", text.FgHiCyan.Sprint(test.TestID)})
	t.AppendRow(table.Row{"State", f.formatState(test.State)})
	if test.TestType != "" {
		t.AppendRow(table.Row{"Type", test.TestType})
	}
	if test.Bucket != "" {
		t.AppendRow(table.Row{"Bucket", test.Bucket})
	}
	if test.Error != "" {
		t.AppendRow(table.Row{"Error", text.FgRed.Sprint(test.Error)})
	}

	var result strings.Builder
	t.SetOutputMirror(&result)
	t.Render()
	return result.String()
}

// FormatResult formats a completed test's result as a field/value table
func (f *TableFormatter) FormatResult(result ResultSummary) string {
	t := f.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("FIELD"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	t.AppendRow(table.Row{"Test ID", text.FgHiCyan.Sprint(result.TestID)})
	t.AppendRow(table.Row{"Scenarios passed", text.FgGreen.Sprint(result.ScenariosPassed)})
	t.AppendRow(table.Row{"Scenarios failed", f.formatFailureCount(result.ScenariosFailed)})
	t.AppendRow(table.Row{"Total scenarios", result.ScenarioCount})
	t.AppendRow(table.Row{"Duration", result.Duration})
	if result.FailureSummary != "" {
		t.AppendRow(table.Row{"Failures", f.formatDescription(result.FailureSummary)})
	}

	var out strings.Builder
	t.SetOutputMirror(&out)
	t.Render()
	return out.String()
}

// FormatData formats generic data using table logic from CLI
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		return f.formatObjectData(d)
	case []interface{}:
		return f.formatArrayData(d)
	case string:
		fmt.Println(d)
	default:
		fmt.Printf("%v\n", d)
	}
	return nil
}

// FindTest finds a test by id in a listing
func (f *TableFormatter) FindTest(tests []TestSummary, testID string) *TestSummary {
	for _, test := range tests {
		if test.TestID == testID {
			return &test
		}
	}
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// Helper methods

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

// formatState colors a lifecycle state for quick scanning
func (f *TableFormatter) formatState(state string) string {
	switch state {
	case "Completed":
		return text.FgGreen.Sprint(state)
	case "Exception", "ShuttingDown":
		return text.FgRed.Sprint(state)
	case "Testing", "Loading":
		return text.FgYellow.Sprint(state)
	default:
		return state
	}
}

// formatFailureCount colors a failure count red if non-zero
func (f *TableFormatter) formatFailureCount(count int) string {
	if count == 0 {
		return text.FgGreen.Sprint(count)
	}
	return text.FgRed.Sprint(count)
}

// formatDescription truncates long failure summaries to a single line.
func (f *TableFormatter) formatDescription(desc string) string {
	return probestrings.TruncateDescription(desc, 80)
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(message string) string {
	return fmt.Sprintf("%s\n", text.FgYellow.Sprint(message))
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(data map[string]interface{}) error {
	t := f.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("KEY"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	for key, value := range data {
		valueStr := fmt.Sprintf("%v", value)
		if len(valueStr) > 100 {
			valueStr = valueStr[:97] + "..."
		}
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(key), valueStr})
	}

	t.Render()
	return nil
}

// formatArrayData formats array data as a simple table
func (f *TableFormatter) formatArrayData(data []interface{}) error {
	if len(data) == 0 {
		fmt.Printf("%s\n", text.FgYellow.Sprint("No items found"))
		return nil
	}

	for i, item := range data {
		fmt.Printf("  %d. %v\n", i+1, item)
	}

	fmt.Printf("\n%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(len(data)),
		text.FgHiBlue.Sprint("items"))

	return nil
}
