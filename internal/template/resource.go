// Package template locates and loads report templates. Identifiers are
// matched against an ordered strategy list (object storage, remote URL,
// bundled file) so new sources can be added without touching the pipeline.
package template

import "fmt"

// Kind classifies a loaded template.
type Kind string

const (
	// KindMarkup is a text template rendered through the markup compiler.
	KindMarkup Kind = "markup"
	// KindPrebuilt is a binary PDF, typically carrying an interactive form.
	KindPrebuilt Kind = "prebuilt-document"
)

// Resource is a loaded, classified template. It is owned by a single render
// invocation and discarded afterwards; only the bundled default markup is
// cached across requests.
type Resource struct {
	ID       string
	Kind     Kind
	Markup   string
	Document []byte
}

// ConfigError marks a template reference that can never resolve as written
// (malformed or pointing at nothing). It is a configuration problem, not a
// transient one.
type ConfigError struct {
	Ref    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("template reference %q: %s", e.Ref, e.Reason)
}
