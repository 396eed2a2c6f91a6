package drafting

import (
	"strings"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/classification"
	"github.com/Veraticus/tender/internal/guard"
	"github.com/Veraticus/tender/internal/model"
)

const (
	methodSection        = assembler.MethodHeading
	qualificationSection = "3. 입찰참가자격"
)

// ConsistencyIssues checks a document and its classification without the
// reasoning service. Wrong method or annex wording is high severity; a
// missing set-aside statement is medium.
func ConsistencyIssues(doc string, c *model.ClassificationResult) []model.ValidationIssue {
	if c == nil {
		return nil
	}

	var issues []model.ValidationIssue

	for _, m := range classification.Recheck(c) {
		issues = append(issues, model.ValidationIssue{
			Section:    methodSection,
			Type:       "classification_" + m.Field,
			Message:    m.String(),
			Suggestion: m.Expected,
			Severity:   model.SeverityHigh,
		})
	}

	for _, v := range guard.ConsistencyViolations(doc, c) {
		issues = append(issues, model.ValidationIssue{
			Section:  methodSection,
			Type:     string(v.Reason),
			Message:  v.Detail,
			Severity: model.SeverityHigh,
		})
	}

	if c.SMERestriction != model.SMENone && !strings.Contains(doc, c.SMERestriction.Label()) {
		issues = append(issues, model.ValidationIssue{
			Section:    qualificationSection,
			Type:       "set_aside",
			Message:    "document does not state the set-aside",
			Suggestion: c.SMERestriction.Label() + "에 해당하는 기업만 입찰 참가 가능",
			Severity:   model.SeverityMedium,
		})
	}

	return issues
}

// normalizeIssues cleans up issues decoded from the reasoning service.
// Unknown severities count as medium so they never trigger a revision.
func normalizeIssues(raw []model.ValidationIssue) []model.ValidationIssue {
	out := make([]model.ValidationIssue, 0, len(raw))
	for _, issue := range raw {
		issue.Message = strings.TrimSpace(issue.Message)
		if issue.Message == "" {
			continue
		}
		switch sev := model.Severity(strings.ToLower(strings.TrimSpace(string(issue.Severity)))); sev {
		case model.SeverityHigh, model.SeverityMedium, model.SeverityLow:
			issue.Severity = sev
		default:
			issue.Severity = model.SeverityMedium
		}
		out = append(out, issue)
	}
	return out
}

func highIssues(issues []model.ValidationIssue) []model.ValidationIssue {
	var out []model.ValidationIssue
	for _, issue := range issues {
		if issue.Severity == model.SeverityHigh {
			out = append(out, issue)
		}
	}
	return out
}
