// Package export orchestrates the report pipeline: fetch the source record,
// build the template model, render, publish, and write the artifact
// reference back onto the record.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/drive"
	"github.com/jmcallister/fleetreport/internal/markup"
	"github.com/jmcallister/fleetreport/internal/normalize"
	"github.com/jmcallister/fleetreport/internal/render"
	"github.com/jmcallister/fleetreport/internal/repository"
	"github.com/jmcallister/fleetreport/internal/template"
)

// Store is the slice of the repository the coordinator needs.
type Store interface {
	Get(ctx context.Context, id string) (*repository.Report, error)
	AttachArtifact(ctx context.Context, id, urlColumn, fileIDColumn, url, fileID string) error
}

// TemplateSource resolves template identifiers.
type TemplateSource interface {
	Resolve(ctx context.Context, id string) (*template.Resource, error)
}

// Publisher stores rendered artifacts externally.
type Publisher interface {
	Publish(ctx context.Context, data []byte, fileName string, opts drive.PublishOptions) (*drive.UploadResult, error)
}

// Result is the terminal outcome of one export. Warning is set when the
// render succeeded but publishing did not; the caller still sees success
// because the structured report data written earlier is never rolled back.
type Result struct {
	ReportID   string
	TemplateID string
	FileID     string
	FileURL    string
	Warning    string
}

// Coordinator runs the export state machine per request. It holds no mutable
// state; each Generate call is independent.
type Coordinator struct {
	store     Store
	templates TemplateSource
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
}

// New constructs a Coordinator.
func New(store Store, templates TemplateSource, publisher Publisher, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		templates: templates,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Generate runs FETCH_SOURCE → RESOLVE_TEMPLATE → BUILD_MODEL → RENDER →
// PUBLISH → PERSIST_REFERENCE. Any failure up to and including RENDER aborts
// with an error and no partial write. A publish failure after a successful
// render returns a Result carrying the failure text instead.
func (c *Coordinator) Generate(ctx context.Context, req Request) (*Result, error) {
	reportID := string(req.ReportID)

	report, err := c.store.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	resource, err := c.templates.Resolve(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	model := normalize.Build(report.Raw, req.TemplateData, c.now())

	data, err := c.renderDocument(ctx, resource, model)
	if err != nil {
		return nil, fmt.Errorf("render report %s: %w", reportID, err)
	}

	fileName := artifactName(req.FileName, reportID)
	uploaded, err := c.publisher.Publish(ctx, data, fileName, drive.PublishOptions{
		FolderID:   req.DriveFolderID,
		MakePublic: req.makePublic(),
	})
	if err != nil {
		c.log.Warn("report rendered but publish failed",
			zap.String("report_id", reportID), zap.Error(err))
		return &Result{
			ReportID:   reportID,
			TemplateID: resource.ID,
			Warning:    err.Error(),
		}, nil
	}

	fileURL := pickLink(uploaded, req.PreferDownloadLink)
	if err := c.store.AttachArtifact(ctx, reportID, req.ReportURLColumn, req.ReportFileIDColumn, fileURL, uploaded.FileID); err != nil {
		return nil, fmt.Errorf("persist artifact reference: %w", err)
	}

	c.log.Info("report exported",
		zap.String("report_id", reportID),
		zap.String("template_id", resource.ID),
		zap.String("file_id", uploaded.FileID))
	return &Result{
		ReportID:   reportID,
		TemplateID: resource.ID,
		FileID:     uploaded.FileID,
		FileURL:    fileURL,
	}, nil
}

// Render produces the report bytes without publishing. Used by the CLI.
func (c *Coordinator) Render(ctx context.Context, req Request) ([]byte, error) {
	report, err := c.store.Get(ctx, string(req.ReportID))
	if err != nil {
		return nil, err
	}
	resource, err := c.templates.Resolve(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	model := normalize.Build(report.Raw, req.TemplateData, c.now())
	return c.renderDocument(ctx, resource, model)
}

// renderDocument picks the rendering path for the resource kind. A prebuilt
// document goes through form filling first; when no field matches, the
// default markup is compiled and appended to the same document.
func (c *Coordinator) renderDocument(ctx context.Context, resource *template.Resource, model normalize.TemplateModel) ([]byte, error) {
	if resource.Kind == template.KindMarkup {
		return render.Render(markup.Compile(resource.Markup, model.Vars()))
	}

	filled, matched, err := render.FillForm(resource.Document, model)
	if err != nil {
		return nil, err
	}
	if matched {
		return filled, nil
	}

	c.log.Info("no form fields matched, appending markup pages",
		zap.String("template_id", resource.ID))
	fallback, err := c.templates.Resolve(ctx, "")
	if err != nil {
		return nil, err
	}
	if fallback.Kind != template.KindMarkup {
		return nil, fmt.Errorf("fallback template %s is not markup", fallback.ID)
	}
	return render.AppendToDocument(resource.Document, markup.Compile(fallback.Markup, model.Vars()))
}

func artifactName(requested, reportID string) string {
	if requested != "" {
		if filepath.Ext(requested) == "" {
			return requested + ".pdf"
		}
		return requested
	}
	return fmt.Sprintf("checklist-report-%s-%s.pdf", reportID, uuid.NewString()[:8])
}

// pickLink chooses between the view and download link variants, falling back
// to whichever one the backend actually returned.
func pickLink(u *drive.UploadResult, preferDownload bool) string {
	if preferDownload && u.WebContentLink != "" {
		return u.WebContentLink
	}
	if u.WebViewLink != "" {
		return u.WebViewLink
	}
	return u.WebContentLink
}
