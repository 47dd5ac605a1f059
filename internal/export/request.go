package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmcallister/fleetreport/internal/repository"
)

// ErrMissingReportID rejects a request without a usable report id.
var ErrMissingReportID = errors.New("report_id is required")

// FlexID accepts a JSON string or number; rows are keyed by text either way.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	return fmt.Errorf("report_id must be a string or number")
}

// Request is one report-export invocation, wire-shaped for both the HTTP
// endpoint and the queue payload.
type Request struct {
	ReportID           FlexID         `json:"report_id"`
	TemplateID         string         `json:"template_id,omitempty"`
	TemplateData       map[string]any `json:"template_data,omitempty"`
	FileName           string         `json:"file_name,omitempty"`
	ReportURLColumn    string         `json:"report_url_column,omitempty"`
	ReportFileIDColumn string         `json:"report_file_id_column,omitempty"`
	DriveFolderID      string         `json:"drive_folder_id,omitempty"`
	SharePublicly      *bool          `json:"share_publicly,omitempty"`
	PreferDownloadLink bool           `json:"prefer_download_link,omitempty"`
	Async              bool           `json:"async,omitempty"`
}

// Defaults are the operator-configured fallbacks applied to a request before
// validation.
type Defaults struct {
	URLColumn    string
	FileIDColumn string
	FolderID     string
}

// Prepare applies defaults and validates everything that must be rejected
// before any side effect: the report id and the caller-supplied column names.
func (r *Request) Prepare(d Defaults) error {
	if strings.TrimSpace(string(r.ReportID)) == "" {
		return ErrMissingReportID
	}
	if r.ReportURLColumn == "" {
		r.ReportURLColumn = d.URLColumn
	}
	if r.ReportFileIDColumn == "" {
		r.ReportFileIDColumn = d.FileIDColumn
	}
	if r.DriveFolderID == "" {
		r.DriveFolderID = d.FolderID
	}
	if !repository.ValidColumnName(r.ReportURLColumn) {
		return fmt.Errorf("%w: %q", repository.ErrInvalidColumn, r.ReportURLColumn)
	}
	if !repository.ValidColumnName(r.ReportFileIDColumn) {
		return fmt.Errorf("%w: %q", repository.ErrInvalidColumn, r.ReportFileIDColumn)
	}
	return nil
}

// makePublic resolves the sharing flag: public unless explicitly false.
func (r *Request) makePublic() bool {
	return r.SharePublicly == nil || *r.SharePublicly
}
