package drafting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/classification"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

func classified(t *testing.T, price float64) *model.ClassificationResult {
	t.Helper()
	c, err := classification.Classify(
		&model.ExtractedRecord{ProcurementType: "goods", EstimatedAmount: price},
		service.Threshold{Amount: classification.DefaultPublishedThreshold},
	)
	require.NoError(t, err)
	return c
}

func TestConsistencyIssues_Clean(t *testing.T) {
	c := classified(t, 300_000_000)
	doc := "## 2. 입찰 및 낙찰 방식\n- 적격심사 (별표2 적용)\n- 참가 제한: 제한 없음"
	assert.Empty(t, ConsistencyIssues(doc, c))
}

func TestConsistencyIssues_StatuteCitationInQualification(t *testing.T) {
	c := classified(t, 300_000_000)
	doc := "## 2. 입찰 및 낙찰 방식\n- 적격심사 (별표2 적용)\n- 참가 제한: 제한 없음\n\n" +
		"## 3. 입찰참가자격\n- 「전기공사업법 시행령」 별표3에 따른 전기공사업 등록업체"
	assert.Empty(t, ConsistencyIssues(doc, c))
}

func TestConsistencyIssues_WrongWording(t *testing.T) {
	c := classified(t, 300_000_000)
	doc := "## 2. 입찰 및 낙찰 방식\n- 소액수의 (별표3 적용)"

	issues := ConsistencyIssues(doc, c)
	require.NotEmpty(t, issues)
	for _, issue := range issues {
		assert.Equal(t, model.SeverityHigh, issue.Severity)
		assert.Equal(t, methodSection, issue.Section)
	}
	assert.True(t, model.HasHighSeverity(issues))
}

func TestConsistencyIssues_TamperedClassification(t *testing.T) {
	c := classified(t, 300_000_000)
	c.SMERestriction = model.SMEMedium
	doc := "적격심사 별표2 중소기업 또는 소상공인"

	issues := ConsistencyIssues(doc, c)
	require.Len(t, issues, 1)
	assert.Equal(t, "classification_set_aside", issues[0].Type)
}

func TestConsistencyIssues_MissingSetAside(t *testing.T) {
	c := classified(t, 150_000_000)
	issues := ConsistencyIssues("적격심사 별표3", c)

	require.Len(t, issues, 1)
	assert.Equal(t, "set_aside", issues[0].Type)
	assert.Equal(t, model.SeverityMedium, issues[0].Severity)
}

func TestNormalizeIssues(t *testing.T) {
	issues := normalizeIssues([]model.ValidationIssue{
		{Message: "a", Severity: " High "},
		{Message: "b", Severity: "critical"},
		{Message: "   ", Severity: "high"},
		{Message: "c", Severity: "low"},
	})

	require.Len(t, issues, 3)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, model.SeverityMedium, issues[1].Severity)
	assert.Equal(t, model.SeverityLow, issues[2].Severity)
	assert.Len(t, highIssues(issues), 1)
}
