// Package prompts renders the instructions sent to the reasoning service.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Prompt names, one template file each.
const (
	Extract  = "extract"
	Generate = "generate"
	Validate = "validate"
	Revise   = "revise"
	Compare  = "compare"
	Review   = "review"
)

// Prompt is an instruction plus the material it applies to.
type Prompt struct {
	Instruction string
	Context     string
}

// Builder renders prompts from the embedded templates.
type Builder struct {
	templates map[string]*template.Template
}

// NewBuilder parses every embedded template.
func NewBuilder() (*Builder, error) {
	b := &Builder{templates: make(map[string]*template.Template)}

	funcMap := template.FuncMap{
		"formatAmount": model.FormatAmount,
		"join":         strings.Join,
		"json":         toJSON,
	}

	for _, name := range []string{Extract, Generate, Validate, Revise, Compare, Review} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(name + ".tmpl").Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		b.templates[name] = tmpl
	}
	return b, nil
}

// MustBuilder is NewBuilder for package initialization; the templates are embedded.
func MustBuilder() *Builder {
	b, err := NewBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) render(name string, data any) (Prompt, error) {
	tmpl, ok := b.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt %q", name)
	}

	var instruction, context bytes.Buffer
	if err := tmpl.ExecuteTemplate(&instruction, "instruction", data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute %s instruction: %w", name, err)
	}
	if err := tmpl.ExecuteTemplate(&context, "context", data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute %s context: %w", name, err)
	}
	return Prompt{
		Instruction: strings.TrimSpace(instruction.String()),
		Context:     strings.TrimSpace(context.String()),
	}, nil
}

// ExtractData feeds the field extraction prompt.
type ExtractData struct {
	Document string
}

// BuildExtract asks for purchase-plan fields as JSON.
func (b *Builder) BuildExtract(data ExtractData) (Prompt, error) {
	return b.render(Extract, data)
}

// GenerateData feeds the drafting prompt.
type GenerateData struct {
	Classification *model.ClassificationResult
	Baseline       string
	ClosingMarker  string
}

// BuildGenerate asks for a polished announcement built on the baseline.
func (b *Builder) BuildGenerate(data GenerateData) (Prompt, error) {
	return b.render(Generate, data)
}

// ValidateData feeds the section review prompt.
type ValidateData struct {
	Classification *model.ClassificationResult
	Sections       string
}

// BuildValidate asks for severity-tagged issues in the variable sections.
func (b *Builder) BuildValidate(data ValidateData) (Prompt, error) {
	return b.render(Validate, data)
}

// ReviseData feeds the revision prompt.
type ReviseData struct {
	Classification *model.ClassificationResult
	Document       string
	ClosingMarker  string
	Issues         []model.ValidationIssue
}

// BuildRevise asks for the full document with the issues fixed.
func (b *Builder) BuildRevise(data ReviseData) (Prompt, error) {
	return b.render(Revise, data)
}

// CompareData feeds the reconciliation comparator.
type CompareData struct {
	Guideline    *model.RecheckGuideline
	TemplateType string
	Template     string
	References   []service.Reference
	Iteration    int
}

// BuildCompare asks for template differences against the references.
func (b *Builder) BuildCompare(data CompareData) (Prompt, error) {
	return b.render(Compare, data)
}

// ReviewData feeds the reconciliation validator.
type ReviewData struct {
	Comparison   *model.ComparisonResult
	TemplateType string
	Template     string
}

// BuildReview asks whether the proposed changes should be applied.
func (b *Builder) BuildReview(data ReviewData) (Prompt, error) {
	return b.render(Review, data)
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
