// Package extract turns purchase-plan files into ExtractedRecords. Structured
// YAML and JSON plans are decoded directly; free-text plans go through the
// reasoning service.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/llm"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/prompts"
	"github.com/Veraticus/tender/internal/service"
)

// maxPlanBytes bounds the size of a purchase-plan file.
const maxPlanBytes = 4 << 20

// Extractor implements service.ExtractionService.
type Extractor struct {
	reasoner service.ReasoningService
	prompts  *prompts.Builder
}

var _ service.ExtractionService = (*Extractor)(nil)

// New creates an extractor. reasoner may be nil, in which case only
// structured plans are accepted.
func New(reasoner service.ReasoningService, builder *prompts.Builder) *Extractor {
	if builder == nil {
		builder = prompts.MustBuilder()
	}
	return &Extractor{reasoner: reasoner, prompts: builder}
}

// Extract reads path and returns a validated record.
func (e *Extractor) Extract(ctx context.Context, path string) (*model.ExtractedRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat purchase plan: %w", err)
	}
	if info.Size() > maxPlanBytes {
		return nil, fmt.Errorf("%w: purchase plan is %d bytes, limit is %d", common.ErrInvalidInput, info.Size(), maxPlanBytes)
	}

	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read purchase plan: %w", err)
	}

	var record *model.ExtractedRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		record, err = DecodeYAML(data)
	case ".json":
		record, err = DecodeJSON(data)
	case ".html", ".htm":
		text, textErr := common.HTMLText(bytes.NewReader(data))
		if textErr != nil {
			return nil, fmt.Errorf("failed to read HTML plan: %w", textErr)
		}
		record, err = e.fromText(ctx, text)
	default:
		record, err = e.fromText(ctx, string(data))
	}
	if err != nil {
		return nil, err
	}

	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	slog.Debug("Extracted purchase plan", "path", path, "project", record.ProjectName)
	return record, nil
}

// DecodeYAML decodes a YAML purchase plan. Unknown keys are rejected.
func DecodeYAML(data []byte) (*model.ExtractedRecord, error) {
	var record model.ExtractedRecord
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML purchase plan: %w", common.ErrInvalidInput, err)
	}
	return &record, nil
}

// DecodeJSON decodes a JSON purchase plan. Unknown keys are rejected.
func DecodeJSON(data []byte) (*model.ExtractedRecord, error) {
	var record model.ExtractedRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON purchase plan: %w", common.ErrInvalidInput, err)
	}
	return &record, nil
}

func (e *Extractor) fromText(ctx context.Context, text string) (*model.ExtractedRecord, error) {
	if e.reasoner == nil {
		return nil, fmt.Errorf("%w: free-text purchase plans need a reasoning service", common.ErrMissingConfig)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: purchase plan is empty", common.ErrInvalidInput)
	}

	p, err := e.prompts.BuildExtract(prompts.ExtractData{Document: text})
	if err != nil {
		return nil, err
	}

	raw, err := e.reasoner.Complete(ctx, p.Instruction, p.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: extraction: %w", common.ErrExternalService, err)
	}

	decoded := llm.Decode(raw, model.ExtractedRecord{})
	if decoded.Outcome == llm.OutcomeFailed {
		return nil, fmt.Errorf("%w: extraction reply could not be decoded: %w", common.ErrExternalService, decoded.Err)
	}
	if decoded.Outcome == llm.OutcomeRecovered {
		slog.Info("Recovered extraction reply", "strategy", decoded.Strategy)
	}
	return &decoded.Value, nil
}
