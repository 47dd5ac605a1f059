// Package normalize coerces the loosely typed checklist payloads stored by
// the driver portal into the strictly typed template model used for
// rendering. It is pure data transformation: no storage, no network, and
// deterministic output for identical input.
package normalize

import "strings"

// Status is the canonical tri-state outcome of a checklist item.
type Status string

const (
	StatusOK            Status = "OK"
	StatusAttention     Status = "ATTENTION"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

var statusWords = map[string]Status{
	"ok":             StatusOK,
	"okay":           StatusOK,
	"yes":            StatusOK,
	"true":           StatusOK,
	"pass":           StatusOK,
	"passed":         StatusOK,
	"good":           StatusOK,
	"checked":        StatusOK,
	"done":           StatusOK,
	"no":             StatusAttention,
	"false":          StatusAttention,
	"fail":           StatusAttention,
	"failed":         StatusAttention,
	"attention":      StatusAttention,
	"defect":         StatusAttention,
	"issue":          StatusAttention,
	"problem":        StatusAttention,
	"n/a":            StatusNotApplicable,
	"na":             StatusNotApplicable,
	"not applicable": StatusNotApplicable,
	"skipped":        StatusNotApplicable,
}

// StatusOf maps an arbitrary checklist answer onto the tri-state scale.
// Booleans map true→OK and false→ATTENTION; recognized words map to their
// status; everything else, including a missing answer, is NOT_APPLICABLE.
func StatusOf(v any) Status {
	switch val := v.(type) {
	case bool:
		if val {
			return StatusOK
		}
		return StatusAttention
	case string:
		if s, ok := statusWords[strings.ToLower(strings.TrimSpace(val))]; ok {
			return s
		}
		return StatusNotApplicable
	case float64:
		// JSON numbers arrive as float64; 1/0 show up where a form stored
		// booleans numerically.
		if val == 1 {
			return StatusOK
		}
		if val == 0 {
			return StatusAttention
		}
		return StatusNotApplicable
	default:
		return StatusNotApplicable
	}
}

// ValueLabel is the human wording rendered next to an item label.
func (s Status) ValueLabel() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusAttention:
		return "Needs attention"
	default:
		return "Not recorded"
	}
}

// Symbol is the short glyph used in tight layouts such as form fields.
func (s Status) Symbol() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusAttention:
		return "!"
	default:
		return "-"
	}
}
