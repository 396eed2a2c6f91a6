// Package classification selects the procurement method, annex, and set-aside
// for a purchase plan from its estimated price and a few categorical facts.
package classification

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

// Fixed price thresholds in won, excluding VAT.
const (
	// SmallPurchaseLimit is the highest price still handled as a simplified negotiated purchase.
	SmallPurchaseLimit = 100_000_000
	// Annex1Floor is the lowest price that falls under Annex 1.
	Annex1Floor = 1_000_000_000
	// SmallBusinessCeiling is the price below which bids are set aside for small businesses.
	SmallBusinessCeiling = 100_000_000
	// DefaultPublishedThreshold is used when no published value has ever been obtained.
	DefaultPublishedThreshold = 230_000_000
)

// HighConfidence is reported for every result since the rules are not probabilistic.
const HighConfidence = 1.0

// Classify applies the price rules to a record using the given published threshold.
// It performs no I/O and returns an error wrapping common.ErrInvalidInput only for
// unusable records.
func Classify(record *model.ExtractedRecord, published service.Threshold) (*model.ClassificationResult, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is nil", common.ErrInvalidInput)
	}

	procType, ok := model.ParseProcurementType(record.ProcurementType)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized procurement type %q", common.ErrInvalidInput, record.ProcurementType)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	t := &tracer{}
	t.note("published_threshold",
		fmt.Sprintf("published threshold %s won from %s", model.FormatAmount(published.Amount), published.Source),
		"use")

	price := estimatedPrice(record, t)

	result := &model.ClassificationResult{
		ProcurementType:       procType,
		Confidence:            HighConfidence,
		AlternativeMethods:    []model.ProcurementMethod{},
		EstimatedPriceExclVAT: price,
		PublishedThreshold:    published.Amount,
	}

	if t.compare("base_method", price, "<=", SmallPurchaseLimit, price <= SmallPurchaseLimit,
		string(model.MethodSimplifiedNegotiated), string(model.MethodFullReview)) {
		result.RecommendedMethod = model.MethodSimplifiedNegotiated
	} else {
		result.RecommendedMethod = model.MethodFullReview
		annex := selectAnnex(price, published.Amount, t)
		result.AppliedAnnex = &annex
	}

	result.SMERestriction = selectSetAside(price, published.Amount, t)
	result.ContractNature = contractNature(record, t)
	result.ReasonTrace = t.steps
	result.Rationale = rationale(result)

	return result, nil
}

// estimatedPrice derives the VAT-exclusive price every threshold is compared against.
// The budget is always treated as VAT-inclusive at a flat 10%; x*10/11 equals x/1.1
// without the rounding drift of dividing by an inexact float.
func estimatedPrice(record *model.ExtractedRecord, t *tracer) float64 {
	if record.TotalBudgetInclVAT != nil {
		price := *record.TotalBudgetInclVAT * 10 / 11
		t.steps = append(t.steps, model.TraceStep{
			Rule:   "price_basis",
			Note:   fmt.Sprintf("total budget %s / 1.1", model.FormatAmount(*record.TotalBudgetInclVAT)),
			Value:  price,
			Branch: "price " + model.FormatAmount(price),
		})
		return price
	}

	t.steps = append(t.steps, model.TraceStep{
		Rule:   "price_basis",
		Note:   "default: no total budget, estimated amount taken as VAT-exclusive",
		Value:  record.EstimatedAmount,
		Branch: "price " + model.FormatAmount(record.EstimatedAmount),
	})
	return record.EstimatedAmount
}

// selectAnnex picks the full-review sub-rule-set. Anything below the published
// threshold lands in Annex 3.
func selectAnnex(price, published float64, t *tracer) model.Annex {
	if t.compare("annex_1", price, ">=", Annex1Floor, price >= Annex1Floor, string(model.Annex1), "next band") {
		return model.Annex1
	}
	if t.compare("annex_2", price, ">=", published, price >= published, string(model.Annex2), string(model.Annex3)+" (catch-all)") {
		return model.Annex2
	}
	return model.Annex3
}

func selectSetAside(price, published float64, t *tracer) model.SMERestriction {
	if t.compare("set_aside_small_business", price, "<", SmallBusinessCeiling, price < SmallBusinessCeiling,
		string(model.SMESmallBusiness), "next band") {
		return model.SMESmallBusiness
	}
	if t.compare("set_aside_sme", price, "<", published, price < published, string(model.SMEMedium), string(model.SMENone)) {
		return model.SMEMedium
	}
	return model.SMENone
}

func contractNature(record *model.ExtractedRecord, t *tracer) model.ContractNature {
	nature := model.ContractNature{
		ContractType:  model.ContractStandard,
		ExecutionType: model.ExecutionSole,
	}

	raw := strings.ToLower(record.ProcurementMethodRaw)
	switch {
	case raw == "":
		t.note("contract_type", "default: no method text", string(nature.ContractType))
	case strings.Contains(raw, "단가") || strings.Contains(raw, "unit price") || strings.Contains(raw, "unit-price"):
		nature.ContractType = model.ContractUnitPrice
		t.note("contract_type", fmt.Sprintf("method text %q mentions unit price", record.ProcurementMethodRaw), string(nature.ContractType))
	default:
		t.note("contract_type", fmt.Sprintf("method text %q", record.ProcurementMethodRaw), string(nature.ContractType))
	}

	if record.IsJointContract {
		nature.ExecutionType = model.ExecutionJoint
	}
	t.note("execution_type", fmt.Sprintf("joint contract flag %t", record.IsJointContract), string(nature.ExecutionType))

	return nature
}

func rationale(r *model.ClassificationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimated price %s won (excl. VAT) ", model.FormatAmount(r.EstimatedPriceExclVAT))
	if r.RecommendedMethod == model.MethodSimplifiedNegotiated {
		fmt.Fprintf(&b, "is at or below %s won: %s (%s).", model.FormatAmount(SmallPurchaseLimit),
			r.RecommendedMethod, r.RecommendedMethod.Label())
	} else {
		fmt.Fprintf(&b, "exceeds %s won: %s (%s) under %s.", model.FormatAmount(SmallPurchaseLimit),
			r.RecommendedMethod, r.RecommendedMethod.Label(), r.AnnexLabel())
	}
	fmt.Fprintf(&b, " Set-aside: %s.", r.SMERestriction.Label())
	return b.String()
}

// tracer accumulates reason trace steps in evaluation order.
type tracer struct {
	steps []model.TraceStep
}

// compare records a threshold comparison and returns its outcome.
func (t *tracer) compare(rule string, value float64, op string, threshold float64, outcome bool, ifTrue, ifFalse string) bool {
	branch := ifFalse
	if outcome {
		branch = ifTrue
	}
	t.steps = append(t.steps, model.TraceStep{
		Rule:      rule,
		Value:     value,
		Operator:  op,
		Threshold: threshold,
		Outcome:   outcome,
		Branch:    branch,
	})
	return outcome
}

func (t *tracer) note(rule, note, branch string) {
	t.steps = append(t.steps, model.TraceStep{Rule: rule, Note: note, Branch: branch})
}

// Engine classifies records against the current published threshold.
type Engine struct {
	thresholds service.ThresholdProvider
}

// NewEngine creates an engine that reads the published threshold from provider.
func NewEngine(provider service.ThresholdProvider) *Engine {
	return &Engine{thresholds: provider}
}

// Classify looks up the published threshold and classifies the record.
func (e *Engine) Classify(ctx context.Context, record *model.ExtractedRecord) (*model.ClassificationResult, error) {
	threshold := service.Threshold{Amount: DefaultPublishedThreshold, Source: service.ThresholdFromDefault}
	if e.thresholds != nil {
		threshold = e.thresholds.Threshold(ctx)
	}
	return Classify(record, threshold)
}
