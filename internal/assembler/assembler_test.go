package assembler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/classification"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
	"github.com/Veraticus/tender/internal/storage"
)

var testNow = time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)

func classify(t *testing.T, r *model.ExtractedRecord) *model.ClassificationResult {
	t.Helper()
	result, err := classification.Classify(r, service.Threshold{Amount: classification.DefaultPublishedThreshold})
	require.NoError(t, err)
	return result
}

func fullReviewRecord() *model.ExtractedRecord {
	return &model.ExtractedRecord{
		ProjectName:          "광화학 대기측정망 컬럼 구매",
		ProcurementType:      "물품",
		TotalBudgetInclVAT:   model.Float64Ptr(330_000_000),
		ContractPeriod:       "2개월",
		Organization:         "국립환경과학원",
		DetailItemCodes:      []string{"4111249901"},
		IndustryCodes:        []string{"4608", "9999"},
		IsJointContract:      true,
		HasRegionRestriction: true,
		RestrictedRegion:     "인천광역시",
	}
}

func seed(t *testing.T, method model.ProcurementMethod) string {
	t.Helper()
	tmpl, err := SeedTemplate(TemplateType(method))
	require.NoError(t, err)
	return tmpl
}

func TestAssemble_IsIdempotent(t *testing.T) {
	record := fullReviewRecord()
	c := classify(t, record)
	tmpl := seed(t, c.RecommendedMethod)

	first := Assemble(c, record, tmpl, testNow)
	second := Assemble(c, record, tmpl, testNow)

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Unresolved, second.Unresolved)
}

func TestAssemble_SeedResolvesEveryPlaceholder(t *testing.T) {
	for _, method := range []model.ProcurementMethod{model.MethodFullReview, model.MethodSimplifiedNegotiated} {
		t.Run(string(method), func(t *testing.T) {
			record := &model.ExtractedRecord{ProjectName: "측정장비 구매", ProcurementType: "goods", EstimatedAmount: 50_000_000}
			if method == model.MethodFullReview {
				record.EstimatedAmount = 500_000_000
			}
			c := classify(t, record)
			require.Equal(t, method, c.RecommendedMethod)

			doc := Assemble(c, record, seed(t, method), testNow)
			assert.Empty(t, doc.Unresolved)
			assert.NotContains(t, doc.Content, "{")
			assert.Contains(t, doc.Content, "위와 같이 공고합니다")
		})
	}
}

func TestAssemble_LayeredLookup(t *testing.T) {
	record := fullReviewRecord()
	record.ItemName = "GC 컬럼"
	c := classify(t, record)

	doc := Assemble(c, record, "{item_name}|{organization}|{contact_phone}|{delivery_deadline_days}|{mystery}", testNow)

	assert.Equal(t, "GC 컬럼|국립환경과학원|02-1234-5678|60|{mystery}", doc.Content)
	assert.Equal(t, SourceExtracted, doc.Sources["item_name"])
	assert.Equal(t, SourceExtracted, doc.Sources["organization"])
	assert.Equal(t, SourceDefault, doc.Sources["contact_phone"])
	assert.Equal(t, SourceDerived, doc.Sources["delivery_deadline_days"])
	assert.Equal(t, []string{"mystery"}, doc.Unresolved)
}

func TestAssemble_ExtractedDeliveryDaysBeatDerived(t *testing.T) {
	record := fullReviewRecord()
	record.DeliveryDeadlineDays = model.IntPtr(45)
	c := classify(t, record)

	doc := Assemble(c, record, "{delivery_deadline_days}", testNow)
	assert.Equal(t, "45", doc.Content)
}

func TestAssemble_DatesDependOnMethod(t *testing.T) {
	small := &model.ExtractedRecord{ProcurementType: "goods", EstimatedAmount: 10_000_000}
	large := &model.ExtractedRecord{ProcurementType: "goods", EstimatedAmount: 900_000_000}
	tmpl := "{announcement_number}|{announcement_date}|{bid_deadline}|{opening_date}|{award_date}"

	smallDoc := Assemble(classify(t, small), small, tmpl, testNow)
	largeDoc := Assemble(classify(t, large), large, tmpl, testNow)

	assert.Equal(t, "공고 제2026-03-02호|2026년 03월 02일|2026년 03월 09일 10시|2026년 03월 10일 11시|2026년 03월 17일", smallDoc.Content)
	assert.Equal(t, "공고 제2026-03-02호|2026년 03월 02일|2026년 03월 16일 10시|2026년 03월 17일 11시|2026년 03월 24일", largeDoc.Content)
}

func TestAssemble_MethodSectionFollowsClassification(t *testing.T) {
	record := fullReviewRecord()
	c := classify(t, record)
	require.NotNil(t, c.AppliedAnnex)

	doc := Assemble(c, record, seed(t, c.RecommendedMethod), testNow)

	assert.Contains(t, doc.Content, "적격심사 세부기준 별표2 적용")
	assert.NotContains(t, doc.Content, "소액수의")
	assert.Contains(t, doc.Content, "공동이행 허용")
	assert.Contains(t, doc.Content, "참가 제한: 제한 없음")
}

func TestAssemble_QualificationAndConditions(t *testing.T) {
	record := fullReviewRecord()
	c := classify(t, record)
	doc := Assemble(c, record, "{qualification_block}\n{other_conditions_block}", testNow)

	assert.Contains(t, doc.Content, "### ① G2B 기본 등록 요건")
	assert.Contains(t, doc.Content, "세부품명번호: 4111249901")
	assert.Contains(t, doc.Content, "「고압가스안전관리법」 제4조에 의한 고압가스판매업(업종코드: 4608)")
	assert.Contains(t, doc.Content, "업종코드 9999에 해당하는 업종을 영위하는 자")
	assert.NotContains(t, doc.Content, "③ 기업규모 요건")
	assert.Contains(t, doc.Content, "### ④ 법적 결격사유 배제")
	assert.Contains(t, doc.Content, "공동이행 계약서를 첨부")
	assert.Contains(t, doc.Content, "납품지가 인천광역시에 위치한 업체만")
}

func TestQualificationBlock_SetAside(t *testing.T) {
	record := &model.ExtractedRecord{ProcurementType: "goods", EstimatedAmount: 150_000_000}
	block := QualificationBlock(classify(t, record), record)

	assert.Contains(t, block, "### ③ 기업규모 요건\n중소기업 또는 소상공인에 해당하는 기업만 입찰 참가 가능")
	assert.NotContains(t, block, "② 물품/업종 요건")
}

func TestOtherConditionsBlock_None(t *testing.T) {
	block := OtherConditionsBlock(&model.ExtractedRecord{})
	assert.Equal(t, "### 공동계약\n해당 없음\n\n### 지역제한\n해당 없음", block)
}

func TestParsePeriodDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"6개월", 180},
		{"계약일로부터 45일", 45},
		{"12 개월", 360},
		{"연말까지", DefaultDeliveryDays},
		{"", DefaultDeliveryDays},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePeriodDays(tt.in), tt.in)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{b} {a} {b} {1bad} {ok_2}")
	assert.Equal(t, []string{"a", "b", "ok_2"}, got)
}

func TestSeedTemplate_UnknownType(t *testing.T) {
	_, err := SeedTemplate("협상계약")
	assert.Error(t, err)
}

func TestExtractSections(t *testing.T) {
	record := fullReviewRecord()
	c := classify(t, record)
	doc := Assemble(c, record, seed(t, c.RecommendedMethod), testNow)

	sections := ExtractSections(doc.Content, VariableSections)
	require.Len(t, sections, len(VariableSections))
	for i, s := range sections {
		assert.Equal(t, VariableSections[i], s.Heading)
		assert.NotEmpty(t, s.Body)
	}

	rendered := RenderSections(sections)
	assert.True(t, strings.HasPrefix(rendered, "## 2. 입찰 및 낙찰 방식\n"))
	assert.NotContains(t, rendered, "## 8. 문의처")
}

func TestCurrentTemplate_FallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	templateType := TemplateType(model.MethodFullReview)

	record, stored, err := CurrentTemplate(ctx, nil, templateType)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, model.DefaultTemplateVersion, record.Version)
	assert.Contains(t, record.Content, "위와 같이 공고합니다")

	store := storage.NewMemoryTemplateStore()
	record, stored, err = CurrentTemplate(ctx, store, templateType)
	require.NoError(t, err)
	assert.False(t, stored)

	require.NoError(t, store.Append(ctx, &model.TemplateRecord{
		TemplateType: templateType,
		Version:      "1.0.1",
		Content:      "## 1. 입찰에 부치는 사항\n위와 같이 공고합니다.",
	}))
	record, stored, err = CurrentTemplate(ctx, store, templateType)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, "1.0.1", record.Version)
}

func TestCurrentTemplate_UnknownType(t *testing.T) {
	_, _, err := CurrentTemplate(context.Background(), nil, "협상계약")
	assert.Error(t, err)
}
