package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jmcallister/fleetreport/internal/markup"
	"github.com/jmcallister/fleetreport/internal/normalize"
)

// formAliases maps each logical template field to the form-field names it is
// known to appear under. Phase one of matching is an exact lookup against
// this table (after normalization); phase two falls back to substring
// matching between normalized field names and logical keys.
var formAliases = map[string][]string{
	"driver_name":          {"driver", "driver_name", "drivername", "employee_name", "name"},
	"vehicle_registration": {"vehicle", "vehicle_registration", "registration", "plate", "rego"},
	"date":                 {"date", "checklist_date", "report_date"},
	"report_number":        {"report_number", "report_no", "reportnum", "number"},
	"odometer":             {"odometer", "start_odometer", "mileage"},
	"fuel_level":           {"fuel", "fuel_level"},
	"depot":                {"depot", "depot_name"},
	"destination":          {"destination", "destination_name"},
	"shift":                {"shift", "shift_window"},
	"notes":                {"notes", "comments", "remarks"},
	"checklist":            {"checklist", "checklist_summary", "items"},
	"defects":              {"defects", "defect_list", "issues"},
	"generated_at":         {"generated", "generated_at", "timestamp"},
}

// formJSON mirrors the subset of pdfcpu's form export format we read and
// write back for filling.
type formJSON struct {
	Forms []formEntry `json:"forms"`
}

type formEntry struct {
	TextFields []textField `json:"textfield,omitempty"`
}

type textField struct {
	Pages  []int  `json:"pages,omitempty"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value"`
	Locked bool   `json:"locked,omitempty"`
}

// FillForm populates the interactive form of a prebuilt document from the
// template model. It reports matched=false, with no error, when the document
// carries no form or no field name could be matched; the caller then falls
// back to markup rendering appended to the same document.
func FillForm(doc []byte, tm normalize.TemplateModel) (out []byte, matched bool, err error) {
	conf := pdfmodel.NewDefaultConfiguration()

	var exported bytes.Buffer
	if err := api.ExportFormJSON(bytes.NewReader(doc), &exported, "template.pdf", conf); err != nil {
		// No AcroForm to export; not an error, just no-match.
		return nil, false, nil
	}
	var form formJSON
	if err := json.Unmarshal(exported.Bytes(), &form); err != nil {
		return nil, false, fmt.Errorf("decode form export: %w", err)
	}

	values := logicalValues(tm)
	count := 0
	for fi := range form.Forms {
		fields := form.Forms[fi].TextFields
		for i := range fields {
			name := fields[i].Name
			if name == "" {
				name = fields[i].ID
			}
			key, ok := matchField(name)
			if !ok {
				continue
			}
			fields[i].Value = values[key]
			count++
		}
	}
	if count == 0 {
		return nil, false, nil
	}

	fill, err := json.Marshal(form)
	if err != nil {
		return nil, false, fmt.Errorf("encode form fill: %w", err)
	}
	var filled bytes.Buffer
	if err := api.FillForm(bytes.NewReader(doc), bytes.NewReader(fill), &filled, conf); err != nil {
		return nil, false, fmt.Errorf("fill form: %w", err)
	}
	return filled.Bytes(), true, nil
}

// AppendToDocument renders the segments as fresh pages and appends them to
// the prebuilt document.
func AppendToDocument(doc []byte, segments []markup.Segment) ([]byte, error) {
	rendered, err := Render(segments)
	if err != nil {
		return nil, err
	}
	var merged bytes.Buffer
	readers := []io.ReadSeeker{bytes.NewReader(doc), bytes.NewReader(rendered)}
	if err := api.MergeRaw(readers, &merged, false, pdfmodel.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("append rendered pages: %w", err)
	}
	return merged.Bytes(), nil
}

// matchField resolves a form-field name to a logical field key: exact alias
// lookup first, then normalized substring matching in both directions.
func matchField(fieldName string) (string, bool) {
	norm := normalizeName(fieldName)
	if norm == "" {
		return "", false
	}
	for key, aliases := range formAliases {
		for _, alias := range aliases {
			if norm == normalizeName(alias) {
				return key, true
			}
		}
	}
	for key := range formAliases {
		nk := normalizeName(key)
		if strings.Contains(norm, nk) || strings.Contains(nk, norm) {
			return key, true
		}
	}
	return "", false
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func logicalValues(tm normalize.TemplateModel) map[string]string {
	var checklist []string
	for _, item := range tm.Items {
		checklist = append(checklist, fmt.Sprintf("%s: %s", item.Label, item.ValueLabel))
	}
	if len(checklist) == 0 {
		checklist = []string{"No checklist items recorded"}
	}
	defects := tm.Defects
	if len(defects) == 0 {
		defects = []string{"None reported"}
	}
	return map[string]string{
		"driver_name":          tm.DriverName,
		"vehicle_registration": tm.VehicleRegistration,
		"date":                 tm.Date,
		"report_number":        tm.ReportNumber,
		"odometer":             tm.Odometer,
		"fuel_level":           tm.FuelLevel,
		"depot":                tm.Depot,
		"destination":          tm.Destination,
		"shift":                tm.Shift,
		"notes":                tm.Notes,
		"checklist":            strings.Join(checklist, "; "),
		"defects":              strings.Join(defects, "; "),
		"generated_at":         tm.GeneratedAt,
	}
}
