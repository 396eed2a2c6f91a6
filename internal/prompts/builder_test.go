package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

func fullReview() *model.ClassificationResult {
	annex := model.Annex2
	return &model.ClassificationResult{
		RecommendedMethod:     model.MethodFullReview,
		AppliedAnnex:          &annex,
		SMERestriction:        model.SMEMedium,
		EstimatedPriceExclVAT: 300_000_000,
	}
}

func TestBuildGenerate(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	p, err := b.BuildGenerate(GenerateData{Classification: fullReview(), Baseline: "## 1. 입찰에 부치는 사항", ClosingMarker: "위와 같이 공고합니다"})
	require.NoError(t, err)

	assert.Contains(t, p.Instruction, "계약방법은 적격심사입니다.")
	assert.Contains(t, p.Instruction, "적용 기준은 별표2입니다.")
	assert.Contains(t, p.Instruction, `"위와 같이 공고합니다"`)
	assert.Equal(t, "[기준 공고문]\n## 1. 입찰에 부치는 사항", p.Context)
}

func TestBuildValidate_SimplifiedHasNoAnnex(t *testing.T) {
	b := MustBuilder()
	c := &model.ClassificationResult{RecommendedMethod: model.MethodSimplifiedNegotiated, SMERestriction: model.SMESmallBusiness, EstimatedPriceExclVAT: 90_000_000}

	p, err := b.BuildValidate(ValidateData{Classification: c, Sections: "## 2. 입찰 및 낙찰 방식\n본문"})
	require.NoError(t, err)

	assert.Contains(t, p.Instruction, "추정가격(부가세 제외): 90,000,000원")
	assert.Contains(t, p.Instruction, "적용 기준: 해당 없음")
	assert.Contains(t, p.Instruction, "참가 제한: 소기업 또는 소상공인")
	assert.Equal(t, "## 2. 입찰 및 낙찰 방식\n본문", p.Context)
}

func TestBuildRevise_ListsIssues(t *testing.T) {
	p, err := MustBuilder().BuildRevise(ReviseData{
		Classification: fullReview(),
		Document:       "문서",
		ClosingMarker:  "위와 같이 공고합니다",
		Issues: []model.ValidationIssue{
			{Section: "3. 입찰참가자격", Message: "별표 누락", Suggestion: "별표2 명시", Severity: model.SeverityHigh},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, p.Instruction, "- [high] 3. 입찰참가자격: 별표 누락 (수정안: 별표2 명시)")
}

func TestBuildCompare_Guideline(t *testing.T) {
	b := MustBuilder()
	refs := []service.Reference{{Source: "적격심사/a.md", Content: "공고 본문"}}

	first, err := b.BuildCompare(CompareData{TemplateType: "적격심사", Template: "템플릿", References: refs})
	require.NoError(t, err)
	assert.NotContains(t, first.Instruction, "재검토")
	assert.Contains(t, first.Context, "[참고 공고 0: 적격심사/a.md]\n공고 본문")

	second, err := b.BuildCompare(CompareData{
		TemplateType: "적격심사",
		Template:     "템플릿",
		References:   refs,
		Iteration:    2,
		Guideline:    &model.RecheckGuideline{Ignore: []string{"날짜"}, Focus: []string{"자격", "일정"}},
	})
	require.NoError(t, err)
	assert.Contains(t, second.Instruction, "재검토 2회차")
	assert.Contains(t, second.Instruction, "무시할 것: 날짜")
	assert.Contains(t, second.Instruction, "집중할 것: 자격, 일정")
}

func TestBuildReview_EmbedsComparison(t *testing.T) {
	p, err := MustBuilder().BuildReview(ReviewData{
		TemplateType: "소액수의",
		Template:     "템플릿",
		Comparison: &model.ComparisonResult{
			HasChanges: true,
			Changes:    []model.Change{{Section: "4. 기타 조건", Type: model.ChangeAdded, NewText: "신규 문구"}},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, p.Context, `"new_text": "신규 문구"`)
	assert.Contains(t, p.Instruction, `"소액수의"`)
}

func TestBuildExtract(t *testing.T) {
	p, err := MustBuilder().BuildExtract(ExtractData{Document: "사업명: 측정장비 구매"})
	require.NoError(t, err)
	assert.Contains(t, p.Instruction, `"total_budget_incl_vat"`)
	assert.Equal(t, "[구매계획서]\n사업명: 측정장비 구매", p.Context)
}
