package layout

import (
	"strings"

	"example.com/timesheet/internal/workbook"
)

var (
	styleBorders     = workbook.Style{Border: true}
	styleBasicCenter = workbook.Style{Wrap: true, Center: true, Border: true}
	styleBoldCenter  = workbook.Style{Bold: true, Wrap: true, Center: true, Border: true}
	styleBasicReport = workbook.Style{FontSize: 14, Wrap: true, Center: true, Border: true}
	styleBoldReport  = workbook.Style{FontSize: 14, Bold: true, Wrap: true, Center: true, Border: true}
	styleMaster      = workbook.Style{FontSize: 14, Bold: true, Wrap: true, Center: true, Border: true, Fill: "#ffff00"}
	styleBasicBorder = workbook.Style{Wrap: true, Border: true}
	styleHeader      = workbook.Style{Bold: true, Wrap: true, Center: true, Border: true}
	styleHeaderRpt   = workbook.Style{FontSize: 14, Bold: true, Wrap: true, Center: true, Border: true}
	styleHeader90    = workbook.Style{FontSize: 14, Bold: true, Wrap: true, Center: true, Border: true, Rotation: 90}
	styleLink        = workbook.Style{FontColor: "#0000ff", Wrap: true, Center: true}
	styleLink90      = workbook.Style{FontColor: "#0000ff", Wrap: true, Center: true, Rotation: 90}
	styleDateTime    = workbook.Style{Wrap: true, Border: true, NumFormat: "yyyy-mm-dd hh:mm:ss"}
	styleTotal       = workbook.Style{FontColor: "#ff0000", FontSize: 14, Bold: true, Wrap: true, Center: true}
	styleTitle       = workbook.Style{Bold: true, Underline: true, FontSize: 16, Wrap: true, Fill: "#ffffff"}
)

// activityStyle colours a cell with the activity's catalog colour.
func activityStyle(color string) workbook.Style {
	s := styleBasicCenter
	color = strings.TrimPrefix(strings.TrimSpace(color), "#")
	if color != "" {
		s.Fill = "#" + strings.ToLower(color)
	}
	return s
}
