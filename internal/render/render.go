// Package render defines how abstract workbooks become files.
package render

import (
	"io"

	"example.com/timesheet/internal/workbook"
)

// Serializer writes a workbook in a concrete file format.
type Serializer interface {
	Serialize(wb *workbook.Workbook, w io.Writer) error
	// Extension is the file extension including the dot.
	Extension() string
}
