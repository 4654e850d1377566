package output

import (
	"encoding/json"
	"io"

	"github.com/davbunn1/riboviz/internal/report"
	"github.com/davbunn1/riboviz/internal/runner"
	"github.com/davbunn1/riboviz/internal/workflow"
)

// JSONRenderer emits structured run data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Document captures the JSON output schema. Plan and Validation are present
// for plan/dry-run invocations; Report is present after a live run.
type Document struct {
	Plan       *workflow.Plan           `json:"plan,omitempty"`
	Validation []runner.ValidationIssue `json:"validation,omitempty"`
	Report     *report.Report           `json:"report,omitempty"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

// Render encodes the document as indented JSON.
func (j *JSONRenderer) Render(doc Document) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
