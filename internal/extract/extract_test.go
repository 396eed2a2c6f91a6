package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/testutil"
)

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExtract_YAML(t *testing.T) {
	path := writePlan(t, "plan.yaml", `
project_name: 광화학 대기측정망 컬럼 구매
procurement_type: 물품
total_budget_incl_vat: 110000000
contract_period: 2개월
is_joint_contract: true
industry_codes: ["4608"]
`)

	record, err := New(nil, nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "광화학 대기측정망 컬럼 구매", record.ProjectName)
	require.NotNil(t, record.TotalBudgetInclVAT)
	assert.InDelta(t, 110_000_000, *record.TotalBudgetInclVAT, 0.1)
	assert.True(t, record.IsJointContract)
	assert.Equal(t, []string{"4608"}, record.IndustryCodes)
}

func TestExtract_JSONRejectsUnknownFields(t *testing.T) {
	path := writePlan(t, "plan.json", `{"procurement_type":"goods","estimated_amount":5000000,"budget":1}`)

	_, err := New(nil, nil).Extract(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtract_ValidatesRecord(t *testing.T) {
	path := writePlan(t, "plan.yml", "project_name: 예산 없음\nprocurement_type: 용역\n")

	_, err := New(nil, nil).Extract(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtract_TextUsesReasoningService(t *testing.T) {
	path := writePlan(t, "plan.txt", "사업명: 측정장비 구매\n소요예산: 99,000,000원")
	fake := testutil.NewScriptedReasoner(
		"```json\n{\"project_name\":\"측정장비 구매\",\"procurement_type\":\"물품\",\"estimated_amount\":90000000}\n```",
	)

	record, err := New(fake, nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "측정장비 구매", record.ProjectName)
	assert.InDelta(t, 90_000_000, record.EstimatedAmount, 0.1)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Context, "소요예산: 99,000,000원")
}

func TestExtract_TextFailures(t *testing.T) {
	path := writePlan(t, "plan.md", "구매계획")

	_, err := New(nil, nil).Extract(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = New(testutil.NewScriptedReasoner("죄송합니다"), nil).Extract(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrExternalService)

	failing := testutil.NewScriptedReasoner()
	failing.FailWith(errors.New("timeout"))
	_, err = New(failing, nil).Extract(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrExternalService)
}
