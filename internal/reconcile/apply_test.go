package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/tender/internal/model"
)

func TestApply(t *testing.T) {
	current := "## 4. 기타 조건\n- 보증금 5%\n- 전자입찰\n- 현장설명 없음"

	tests := []struct {
		name       string
		body       string
		proposed   []model.Change
		approved   []model.Change
		wantBody   string
		wantReason string
	}{
		{
			name:     "all approved",
			body:     "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰\n- 현장설명 없음",
			proposed: []model.Change{{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"}},
			approved: []model.Change{{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"}},
			wantBody: "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰\n- 현장설명 없음",
		},
		{
			name: "unapproved addition removed",
			body: "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰\n- 현장설명 없음\n- 청렴서약서 제출",
			proposed: []model.Change{
				{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"},
				{Type: model.ChangeAdded, Section: "4. 기타 조건", NewText: "\n- 청렴서약서 제출"},
			},
			approved: []model.Change{{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"}},
			wantBody: "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰\n- 현장설명 없음",
		},
		{
			name: "unapproved removal cannot be restored",
			body: "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰",
			proposed: []model.Change{
				{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"},
				{Type: model.ChangeRemoved, OldText: "- 현장설명 없음"},
			},
			approved:   []model.Change{{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"}},
			wantReason: "cannot be separated",
		},
		{
			name: "unapproved text already in template is ambiguous",
			body: "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰\n- 전자입찰\n- 현장설명 없음",
			proposed: []model.Change{
				{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"},
				{Type: model.ChangeAdded, Section: "4. 기타 조건", NewText: "- 전자입찰"},
			},
			approved:   []model.Change{{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"}},
			wantReason: "cannot be separated",
		},
		{
			name:       "added section checked by name",
			body:       current + "\n\n## 9. 공동수급",
			proposed:   []model.Change{{Type: model.ChangeAdded, Section: "10. 하도급"}},
			approved:   []model.Change{{Type: model.ChangeAdded, Section: "10. 하도급"}},
			wantReason: "section 10. 하도급",
		},
		{
			name:       "modified without new text",
			body:       current + "\n추가",
			proposed:   []model.Change{{Type: model.ChangeModified, OldText: "전자입찰"}},
			approved:   []model.Change{{Type: model.ChangeModified, OldText: "전자입찰"}},
			wantReason: "without new text",
		},
		{
			name:       "nothing left to save",
			body:       "## 4. 기타 조건\n- 보증금 2.5%\n- 전자입찰\n- 현장설명 없음",
			proposed:   []model.Change{{Type: model.ChangeModified, OldText: "보증금 5%", NewText: "보증금 2.5%"}},
			approved:   []model.Change{{Type: model.ChangeRemoved, OldText: "- 현장설명 없음"}},
			wantReason: "matches the current template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparison := model.ComparisonResult{HasChanges: true, Changes: tt.proposed, UpdatedTemplate: tt.body}
			body, reason := Apply(current, comparison, tt.approved)
			if tt.wantReason != "" {
				assert.Contains(t, reason, tt.wantReason)
				assert.Empty(t, body)
				return
			}
			assert.Empty(t, reason)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestNormalize(t *testing.T) {
	c := Normalize(model.ComparisonResult{HasChanges: true, UpdatedTemplate: "x"})
	assert.False(t, c.HasChanges)
	assert.Empty(t, c.UpdatedTemplate)

	c = Normalize(model.ComparisonResult{HasChanges: false, Changes: []model.Change{{Type: "added"}}})
	assert.False(t, c.HasChanges)
	assert.Nil(t, c.Changes)

	c = Normalize(model.ComparisonResult{HasChanges: true, Changes: []model.Change{{Type: " Modified ", Severity: "HIGH"}}})
	assert.True(t, c.HasChanges)
	assert.Equal(t, model.ChangeModified, c.Changes[0].Type)
	assert.Equal(t, model.SeverityHigh, c.Changes[0].Severity)
}

func TestNextVersion(t *testing.T) {
	tests := map[string]string{
		"1.0.0":    "1.0.1",
		"2.3.9":    "2.3.10",
		"1.0.beta": "1.0.beta",
		"v1":       "v1",
		"1.0.":     "1.0.",
		"1.2.3.4":  "1.2.3.4",
	}
	for in, want := range tests {
		assert.Equal(t, want, NextVersion(in), in)
	}
}

func TestUnescapeBody(t *testing.T) {
	assert.Equal(t, "a\nb \"c\"", unescapeBody(`a\nb \"c\"`))
	assert.Equal(t, "a\nb\\n", unescapeBody("a\nb\\n"))
}
