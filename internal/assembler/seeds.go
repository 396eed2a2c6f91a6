package assembler

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

//go:embed templates/*.md
var seedFS embed.FS

var seedFiles = map[model.ProcurementMethod]string{
	model.MethodFullReview:           "templates/full_review.md",
	model.MethodSimplifiedNegotiated: "templates/simplified_negotiated.md",
}

// TemplateType returns the template store key for a procurement method.
func TemplateType(method model.ProcurementMethod) string {
	return method.Label()
}

// MethodForTemplateType maps a template store key back to its method.
func MethodForTemplateType(templateType string) (model.ProcurementMethod, bool) {
	for method := range seedFiles {
		if TemplateType(method) == templateType {
			return method, true
		}
	}
	return "", false
}

// TemplateTypes lists every template type with a built-in seed.
func TemplateTypes() []string {
	return []string{
		TemplateType(model.MethodSimplifiedNegotiated),
		TemplateType(model.MethodFullReview),
	}
}

// SeedTemplate returns the built-in template for a template type. It is the
// fallback when the template store holds no version yet.
func SeedTemplate(templateType string) (string, error) {
	method, ok := MethodForTemplateType(templateType)
	if !ok {
		return "", fmt.Errorf("no built-in template for type %q", templateType)
	}
	data, err := seedFS.ReadFile(seedFiles[method])
	if err != nil {
		return "", fmt.Errorf("failed to read built-in template: %w", err)
	}
	return string(data), nil
}

// CurrentTemplate returns the newest stored version of a template type. When
// store is nil or holds no version yet, the built-in seed is returned as an
// unsaved record at model.DefaultTemplateVersion and stored is false.
func CurrentTemplate(ctx context.Context, store service.TemplateStore, templateType string) (record *model.TemplateRecord, stored bool, err error) {
	if store != nil {
		latest, err := store.Latest(ctx, templateType)
		if err == nil {
			return latest, true, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to load template %s: %w", templateType, err)
		}
	}

	content, err := SeedTemplate(templateType)
	if err != nil {
		return nil, false, err
	}
	return &model.TemplateRecord{
		TemplateType: templateType,
		Version:      model.DefaultTemplateVersion,
		Content:      content,
		Summary:      "built-in template",
	}, false, nil
}
