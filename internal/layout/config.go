package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the labels and sizes of the generated workbook. Everything
// has a default; a YAML file may override any subset.
type Config struct {
	Sheets     SheetNames      `yaml:"sheets"`
	Labels     Labels          `yaml:"labels"`
	Widths     Widths          `yaml:"widths"`
	RowHeights map[int]float64 `yaml:"row_heights"`
}

type SheetNames struct {
	Activities  string `yaml:"activities"`
	Corrections string `yaml:"corrections"`
	Report      string `yaml:"report"`
}

type Labels struct {
	Number   string `yaml:"number"`
	FullName string `yaml:"full_name"`
	Job      string `yaml:"job"`
	// MonthHeader is a format with the month name and the year.
	MonthHeader string `yaml:"month_header"`
	Shifts      string `yaml:"shifts"`
	Hours       string `yaml:"hours"`
	Rate        string `yaml:"rate"`
	Salary      string `yaml:"salary"`
	ShiftPhoto  string `yaml:"shift_photo"`
	DriveLink   string `yaml:"drive_link"`

	ActivityCode        string `yaml:"activity_code"`
	ActivityDuration    string `yaml:"activity_duration"`
	ActivityDescription string `yaml:"activity_description"`

	CorrectionMaster   string `yaml:"correction_master"`
	CorrectionWorker   string `yaml:"correction_worker"`
	CorrectionOldCode  string `yaml:"correction_old_code"`
	CorrectionAssigned string `yaml:"correction_assigned"`
	CorrectionNewCode  string `yaml:"correction_new_code"`
	CorrectionReason   string `yaml:"correction_reason"`
	CorrectionChanged  string `yaml:"correction_changed"`
}

type Widths struct {
	Number   float64 `yaml:"number"`
	FullName float64 `yaml:"full_name"`
	Job      float64 `yaml:"job"`
	Day      float64 `yaml:"day"`
	Shifts   float64 `yaml:"shifts"`
	Hours    float64 `yaml:"hours"`
	Rate     float64 `yaml:"rate"`
	Salary   float64 `yaml:"salary"`

	ActivityCode        float64 `yaml:"activity_code"`
	ActivityDuration    float64 `yaml:"activity_duration"`
	ActivityDescription float64 `yaml:"activity_description"`

	CorrectionNames  float64 `yaml:"correction_names"`
	CorrectionCode   float64 `yaml:"correction_code"`
	CorrectionDate   float64 `yaml:"correction_date"`
	CorrectionReason float64 `yaml:"correction_reason"`
}

// DefaultConfig returns the built-in layout.
func DefaultConfig() Config {
	return Config{
		Sheets: SheetNames{
			Activities:  "Codes",
			Corrections: "Corrections",
			Report:      "Report",
		},
		Labels: Labels{
			Number:      "No.",
			FullName:    "Full name",
			Job:         "Job",
			MonthHeader: "Days of month (%s %d)",
			Shifts:      "Total shifts worked",
			Hours:       "Hours worked",
			Rate:        "Rate",
			Salary:      "Salary",
			ShiftPhoto:  "Shift photo",
			DriveLink:   "Link to drive",

			ActivityCode:        "Code",
			ActivityDuration:    "Duration",
			ActivityDescription: "Description",

			CorrectionMaster:   "Master",
			CorrectionWorker:   "Worker",
			CorrectionOldCode:  "Old code",
			CorrectionAssigned: "Assigned at",
			CorrectionNewCode:  "New code",
			CorrectionReason:   "Reason for change",
			CorrectionChanged:  "Changed at",
		},
		Widths: Widths{
			Number:   8,
			FullName: 50,
			Job:      30,
			Day:      7,
			Shifts:   10,
			Hours:    10,
			Rate:     10,
			Salary:   20,

			ActivityCode:        8,
			ActivityDuration:    15,
			ActivityDescription: 40,

			CorrectionNames:  30,
			CorrectionCode:   13,
			CorrectionDate:   20,
			CorrectionReason: 40,
		},
		RowHeights: map[int]float64{0: 40, 1: 40, 2: 40, 3: 80},
	}
}

// LoadConfig reads YAML overrides from path on top of the defaults. An empty
// path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read layout config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse layout config %s: %w", path, err)
	}
	return cfg, nil
}
