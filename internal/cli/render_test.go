package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/reconcile"
	"github.com/Veraticus/tender/internal/service"
)

func annex(a model.Annex) *model.Annex { return &a }

func TestRenderClassification(t *testing.T) {
	c := &model.ClassificationResult{
		RecommendedMethod:     model.MethodFullReview,
		AppliedAnnex:          annex(model.Annex2),
		SMERestriction:        model.SMENone,
		ProcurementType:       model.ProcurementGoods,
		ContractNature:        model.ContractNature{ContractType: model.ContractStandard, ExecutionType: model.ExecutionJoint},
		AlternativeMethods:    []model.ProcurementMethod{model.MethodSimplifiedNegotiated},
		EstimatedPriceExclVAT: 300_000_000,
		PublishedThreshold:    230_000_000,
		Confidence:            0.95,
		ReasonTrace: []model.TraceStep{
			{Rule: "published threshold", Operator: ">=", Value: 300_000_000, Threshold: 230_000_000, Outcome: true, Branch: "full review"},
		},
	}

	out := RenderClassification(c, false)
	assert.Contains(t, out, "적격심사")
	assert.Contains(t, out, "별표2")
	assert.Contains(t, out, "300,000,000원")
	assert.Contains(t, out, "소액수의")
	assert.Contains(t, out, "0.95")
	assert.NotContains(t, out, "Reason trace")

	explained := RenderClassification(c, true)
	assert.Contains(t, explained, "Reason trace")
	assert.Contains(t, explained, "1. published threshold")
}

func TestRenderClassification_NoAnnex(t *testing.T) {
	c := &model.ClassificationResult{RecommendedMethod: model.MethodSimplifiedNegotiated, SMERestriction: model.SMESmallBusiness}
	out := RenderClassification(c, true)
	assert.Contains(t, out, "없음")
	assert.Contains(t, out, "소기업 또는 소상공인")
	assert.NotContains(t, out, "Reason trace")
}

func TestRenderSession(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := &drafting.Session{
		ID:              "sess-1",
		State:           drafting.StateNeedsHuman,
		UpdatedAt:       at,
		TemplateType:    "적격심사",
		TemplateVersion: "1.0.2",
		RetryCount:      3,
		MaxRetry:        3,
		ServiceCalls:    4,
		ServiceFailures: 4,
		NeedsReview:     true,
		Unresolved:      []string{"mystery"},
		Baseline:        "## 1. 입찰에 부치는 사항",
		Issues: []model.ValidationIssue{
			{Section: "3. 입찰참가자격", Message: "업종코드 누락", Suggestion: "업종코드 기재", Severity: model.SeverityHigh},
		},
		ErrorLog: []drafting.ErrorEntry{{At: at, State: drafting.StateGenerating, Message: "service unavailable"}},
	}

	out := RenderSession(s, false)
	assert.Contains(t, out, "sess-1")
	assert.Contains(t, out, "needs_human")
	assert.Contains(t, out, "적격심사 1.0.2")
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, "4 (4 failed)")
	assert.Contains(t, out, "needs human review")
	assert.Contains(t, out, "mystery")
	assert.Contains(t, out, "HIGH [3. 입찰참가자격] 업종코드 누락")
	assert.Contains(t, out, "service unavailable")
	assert.NotContains(t, out, "## 1. 입찰에 부치는 사항")

	assert.Contains(t, RenderSession(s, true), "## 1. 입찰에 부치는 사항")
}

func TestRenderSessionList(t *testing.T) {
	assert.Contains(t, RenderSessionList(nil), "No drafting sessions yet")

	out := RenderSessionList([]*drafting.Session{
		{ID: "a", State: drafting.StateComplete, TemplateType: "소액수의", TemplateVersion: "1.0.0", MaxRetry: 3},
		{ID: "b", State: drafting.StateNeedsHuman, NeedsReview: true, MaxRetry: 3},
	})
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "소액수의 1.0.0")
	assert.Contains(t, out, "yes")
}

func TestRenderTemplates(t *testing.T) {
	assert.Contains(t, RenderTemplates("적격심사", nil), "built-in template")

	out := RenderTemplates("적격심사", []model.TemplateRecord{
		{ID: "0123456789abcdef", Version: "1.0.1", Summary: "입찰보증금 변경"},
		{ID: "short", Version: "1.0.0"},
	})
	assert.Contains(t, out, "1.0.1 *")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "입찰보증금 변경")
}

func TestRenderReconcile(t *testing.T) {
	current := &model.TemplateRecord{Version: "1.0.0"}

	unchanged := RenderReconcile(&reconcile.Result{
		TemplateType: "적격심사",
		Current:      current,
		Status:       reconcile.StatusUnchanged,
		Reason:       "no references in window",
	})
	assert.Contains(t, unchanged, "Template unchanged")
	assert.Contains(t, unchanged, "no references in window")

	changed := RenderReconcile(&reconcile.Result{
		TemplateType: "적격심사",
		Current:      current,
		Saved:        &model.TemplateRecord{Version: "1.0.1"},
		Status:       reconcile.StatusChanged,
		Summary:      "입찰보증금 변경",
		References:   3,
		Iterations:   1,
		Changes: []model.Change{
			{Section: "4. 기타 조건", Type: model.ChangeModified, OldText: "5%", NewText: "2.5%", Frequency: "3/3"},
			{Section: "10. 하도급", Type: model.ChangeAdded, NewText: "하도급 금지"},
		},
	})
	assert.Contains(t, changed, "Saved 적격심사 1.0.1")
	assert.Contains(t, changed, `MODIFIED [4. 기타 조건] "5%" → "2.5%"`)
	assert.Contains(t, changed, "(3/3)")
	assert.Contains(t, changed, `ADDED [10. 하도급] ∅ → "하도급 금지"`)
}

func TestRenderThreshold(t *testing.T) {
	out := RenderThreshold(service.Threshold{Amount: 230_000_000, Source: service.ThresholdFromFetch, FetchedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)})
	assert.Contains(t, out, "230,000,000원")
	assert.Contains(t, out, "fetch")
	assert.Contains(t, out, "2026-01-0")

	assert.NotContains(t, RenderThreshold(service.Threshold{Amount: 1, Source: service.ThresholdFromDefault}), "As of")
}

func TestProgress_Plain(t *testing.T) {
	buf := &syncBuffer{}
	p := NewProgress(buf, "Drafting", true)

	p.Update("Classifying", 25)
	p.Update("Classifying", 30)
	p.Update("Done", 140)
	p.Finish()

	assert.Equal(t, "[ 25%] Classifying\n[100%] Done\n", buf.String())
}

func TestProgress_Bar(t *testing.T) {
	buf := &syncBuffer{}
	p := NewProgress(buf, "Drafting", false)

	p.Update("Validating sections", 70)
	p.Finish()

	assert.Contains(t, buf.String(), "Validating sections")
}
