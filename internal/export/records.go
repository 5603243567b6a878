package export

import "strings"

// Row is implemented by planner entities that can be exported as CSV.
type Row interface {
	CSVHeader() []string
	CSVRow() []string
}

// Records renders items with the same unquoted joiner as the timeline CSV.
func Records[T Row](items []T) string {
	var zero T
	rows := []string{joinRow(zero.CSVHeader()...)}
	for _, item := range items {
		rows = append(rows, joinRow(item.CSVRow()...))
	}
	return strings.Join(rows, "\n")
}
