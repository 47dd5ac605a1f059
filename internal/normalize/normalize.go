package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const displayDateFormat = "02 Jan 2006"

// Candidate source paths per target field. Overrides are consulted before the
// stored report, and within each record more specific nested paths come
// before generic ones. A path is a dot-separated descent through maps.
var (
	driverNamePaths = []string{"driver_name", "driver.full_name", "driver.name", "profiles.full_name", "driver"}
	vehicleRegPaths = []string{"vehicle_registration", "vehicle.registration", "vehicle.plate", "vehicle.reg", "registration", "vehicle"}
	vehicleDescPaths = []string{"vehicle_description", "vehicle.description", "vehicle.model", "vehicle.make"}
	depotPaths       = []string{"depot_name", "depot.name", "depot"}
	destinationPaths = []string{"destination_name", "destination.name", "destination"}
	datePaths        = []string{"checklist_date", "date", "completed_at", "created_at"}
	reportNumPaths   = []string{"report_number", "report_no", "number", "id"}
	shiftPaths       = []string{"shift_window", "shift.window", "shift"}
	odometerPaths    = []string{"start_odometer", "odometer_reading", "odometer"}
	fuelPaths        = []string{"fuel_level", "fuel"}
	notesPaths       = []string{"notes", "comments", "remarks"}
)

// Build normalizes a stored report and optional per-call overrides into a
// fallback-complete TemplateModel. now stamps the generation timestamp so
// callers (and tests) control the clock.
func Build(rawReport, rawOverrides map[string]any, now time.Time) TemplateModel {
	report := SanitizeRecord(rawReport)
	overrides := SanitizeRecord(rawOverrides)
	sources := []map[string]any{overrides, report}

	items := ExtractItems(sources)
	defects := make([]string, 0)
	for _, item := range items {
		if item.Status == StatusAttention {
			defects = append(defects, item.Label)
		}
	}

	return TemplateModel{
		DriverName:          pickString(gather(sources, driverNamePaths), "Unknown driver"),
		VehicleRegistration: pickString(gather(sources, vehicleRegPaths), Placeholder),
		VehicleDescription:  pickString(gather(sources, vehicleDescPaths), Placeholder),
		Depot:               pickString(gather(sources, depotPaths), Placeholder),
		Destination:         pickString(gather(sources, destinationPaths), Placeholder),
		Date:                pickDate(gather(sources, datePaths), now),
		ReportNumber:        pickString(gather(sources, reportNumPaths), Placeholder),
		Shift:               pickString(gather(sources, shiftPaths), Placeholder),
		Odometer:            pickQuantity(gather(sources, odometerPaths), "%s km"),
		FuelLevel:           pickQuantity(gather(sources, fuelPaths), "%s%%"),
		Notes:               pickString(gather(sources, notesPaths), "No notes recorded"),
		GeneratedAt:         now.UTC().Format("02 Jan 2006 15:04 MST"),
		Items:               View(items),
		Defects:             defects,
		DefectsCount:        len(defects),
	}
}

// gather collects candidate values across sources in priority order. Missing
// paths contribute nothing.
func gather(sources []map[string]any, paths []string) []any {
	var out []any
	for _, src := range sources {
		for _, path := range paths {
			if v, ok := lookup(src, path); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

func lookup(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, seg := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// pickString returns the first candidate that is a non-blank string, trimmed.
// Numbers are stringified as a secondary preference. When nothing qualifies
// the fallback is returned.
func pickString(candidates []any, fallback string) string {
	for _, c := range candidates {
		if s, ok := c.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	for _, c := range candidates {
		if n, ok := asNumber(c); ok {
			return formatNumber(n)
		}
	}
	return fallback
}

// pickDate parses the first candidate that matches a known layout and
// reformats it for display. Unparseable candidates are skipped, never
// surfaced as errors; with no usable candidate the generation day is shown.
func pickDate(candidates []any, now time.Time) string {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006",
	}
	for _, c := range candidates {
		s, ok := c.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(displayDateFormat)
			}
		}
	}
	return now.UTC().Format(displayDateFormat)
}

// pickQuantity formats the first numeric candidate with the given unit
// pattern, or returns the placeholder dash.
func pickQuantity(candidates []any, pattern string) string {
	for _, c := range candidates {
		if n, ok := asNumber(c); ok {
			return fmt.Sprintf(pattern, formatNumber(n))
		}
	}
	return Placeholder
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'f', 1, 64)
}
