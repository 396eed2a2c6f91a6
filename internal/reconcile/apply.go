package reconcile

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tender/internal/model"
)

// Apply derives the body to persist from the comparator's regenerated
// template: proposed changes the validator did not approve are reverted, and
// every approved change must then be present. A non-empty reason means
// nothing may be saved.
func Apply(current string, comparison model.ComparisonResult, approved []model.Change) (body, reason string) {
	body = comparison.UpdatedTemplate

	approvedKeys := make(map[string]struct{}, len(approved))
	for _, c := range approved {
		approvedKeys[changeKey(c)] = struct{}{}
	}

	for _, proposed := range comparison.Changes {
		if _, ok := approvedKeys[changeKey(proposed)]; ok {
			continue
		}
		var ok bool
		if body, ok = revert(body, current, proposed); !ok {
			return "", fmt.Sprintf("unapproved %s change in %q cannot be separated from the regenerated template", proposed.Type, proposed.Section)
		}
	}

	for _, c := range approved {
		if missing := missingText(body, c); missing != "" {
			return "", fmt.Sprintf("approved change not present in regenerated template: %q", missing)
		}
	}

	if body == current {
		return "", "regenerated template matches the current template"
	}
	return body, ""
}

func changeKey(c model.Change) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(string(c.Type))),
		strings.TrimSpace(c.Section),
		strings.TrimSpace(c.OldText),
		strings.TrimSpace(c.NewText),
	}, "\x00")
}

// missingText returns the text an approved change requires in body when it is
// absent. Added sections are found by their section name.
func missingText(body string, c model.Change) string {
	switch c.Type {
	case model.ChangeRemoved:
		return ""
	case model.ChangeAdded:
		if c.Section == "" || !strings.Contains(body, c.Section) {
			return "section " + c.Section
		}
		return ""
	default:
		if c.NewText == "" {
			return fmt.Sprintf("%s change in %s without new text", c.Type, c.Section)
		}
		if !strings.Contains(body, c.NewText) {
			return c.NewText
		}
		return ""
	}
}

// revert undoes one unapproved change in body. It reports false when the
// change was applied but cannot be undone unambiguously.
func revert(body, current string, c model.Change) (string, bool) {
	switch c.Type {
	case model.ChangeRemoved:
		if c.OldText == "" || strings.Count(body, c.OldText) >= strings.Count(current, c.OldText) {
			return body, true
		}
		return body, false

	case model.ChangeAdded, model.ChangeModified:
		if c.NewText == "" {
			if c.Type == model.ChangeAdded && c.Section != "" && strings.Count(body, c.Section) > strings.Count(current, c.Section) {
				return body, false
			}
			return body, true
		}
		inBody, inCurrent := strings.Count(body, c.NewText), strings.Count(current, c.NewText)
		if inBody <= inCurrent {
			return body, true
		}
		if inCurrent > 0 {
			return body, false
		}
		replacement := ""
		if c.Type == model.ChangeModified {
			replacement = c.OldText
		}
		return strings.ReplaceAll(body, c.NewText, replacement), true

	default:
		return body, false
	}
}
