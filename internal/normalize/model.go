package normalize

import (
	"fmt"
	"strings"
)

// Placeholder is the dash rendered wherever a value was never recorded.
const Placeholder = "—"

// Item is a canonical checklist item.
type Item struct {
	Label  string
	Status Status
}

// ItemView is the flattened, render-ready projection of an Item.
type ItemView struct {
	Label         string
	ValueLabel    string
	Symbol        string
	OK            bool
	Attention     bool
	NotApplicable bool
}

// TemplateModel is the full set of substitution values available to
// rendering. Every string field carries a non-empty fallback; rendering never
// sees an absent value, only a distinct blank.
type TemplateModel struct {
	DriverName          string
	VehicleRegistration string
	VehicleDescription  string
	Depot               string
	Destination         string
	Date                string
	ReportNumber        string
	Shift               string
	Odometer            string
	FuelLevel           string
	Notes               string
	GeneratedAt         string

	Items        []ItemView
	Defects      []string
	DefectsCount int
}

// Vars flattens the model into the substitution map consumed by the markup
// compiler. Checklist items and defects are pre-rendered as list-item markup
// so plain variable substitution is all a template needs.
func (m TemplateModel) Vars() map[string]string {
	vars := map[string]string{
		"driver_name":          m.DriverName,
		"vehicle_registration": m.VehicleRegistration,
		"vehicle_description":  m.VehicleDescription,
		"depot":                m.Depot,
		"destination":          m.Destination,
		"date":                 m.Date,
		"report_number":        m.ReportNumber,
		"shift":                m.Shift,
		"odometer":             m.Odometer,
		"fuel_level":           m.FuelLevel,
		"notes":                m.Notes,
		"generated_at":         m.GeneratedAt,
		"defects_count":        fmt.Sprintf("%d", m.DefectsCount),
	}
	vars["checklist_items"] = m.checklistMarkup()
	vars["defect_items"] = m.defectMarkup()
	return vars
}

func (m TemplateModel) checklistMarkup() string {
	if len(m.Items) == 0 {
		return "<li>No checklist items recorded</li>"
	}
	var b strings.Builder
	for _, item := range m.Items {
		fmt.Fprintf(&b, "<li>%s: %s</li>", item.Label, item.ValueLabel)
	}
	return b.String()
}

func (m TemplateModel) defectMarkup() string {
	if len(m.Defects) == 0 {
		return "<li>None reported</li>"
	}
	var b strings.Builder
	for _, label := range m.Defects {
		fmt.Fprintf(&b, "<li>%s</li>", label)
	}
	return b.String()
}

// View projects canonical items into their render-ready shape.
func View(items []Item) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, ItemView{
			Label:         item.Label,
			ValueLabel:    item.Status.ValueLabel(),
			Symbol:        item.Status.Symbol(),
			OK:            item.Status == StatusOK,
			Attention:     item.Status == StatusAttention,
			NotApplicable: item.Status == StatusNotApplicable,
		})
	}
	return out
}
