package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/llm"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/prompts"
	"github.com/Veraticus/tender/internal/service"
)

type phase int

const (
	phaseCompare phase = iota
	phaseValidate
)

type approval struct {
	comparison model.ComparisonResult
	decision   model.ValidationDecision
}

func (a *approval) summary() string {
	if s := strings.TrimSpace(a.decision.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(a.comparison.Summary)
}

// review alternates comparator and validator until the validator approves,
// the recheck budget runs out, or a reply cannot be trusted. A nil approval
// means unchanged; result.Reason says why.
func (r *Reconciler) review(ctx context.Context, current *model.TemplateRecord, refs []service.Reference, result *Result, progress ProgressCallback) (*approval, error) {
	var (
		guideline  *model.RecheckGuideline
		comparison model.ComparisonResult
		iteration  int
	)

	ph := phaseCompare
	for {
		switch ph {
		case phaseCompare:
			iteration++
			result.Iterations = iteration
			progress(fmt.Sprintf("Comparing with %d references (%d/%d)", len(refs), iteration, r.config.MaxIterations), 20+(iteration-1)*30)

			c, reason, err := r.compare(ctx, current, refs, guideline, iteration)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				result.Reason = reason
				result.Summary = c.Summary
				return nil, nil
			}
			comparison = c
			ph = phaseValidate

		case phaseValidate:
			progress(fmt.Sprintf("Validating %d proposed changes", len(comparison.Changes)), 35+(iteration-1)*30)

			d, reason, err := r.validate(ctx, current, &comparison)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				result.Reason = reason
				return nil, nil
			}
			result.Summary = d.Summary

			switch {
			case d.Decision == model.DecisionApprove && len(d.ApprovedChanges) > 0:
				return &approval{comparison: comparison, decision: d}, nil
			case d.Decision == model.DecisionReject && d.RequiresRecheck && iteration < r.config.MaxIterations:
				g := d.RecheckGuideline
				guideline = &g
				slog.Info("Validator requested recheck",
					"template_type", current.TemplateType,
					"iteration", iteration,
					"ignore", g.Ignore,
					"focus", g.Focus)
				ph = phaseCompare
			case d.Decision == model.DecisionReject && d.RequiresRecheck:
				result.Reason = fmt.Sprintf("recheck limit of %d iterations reached", r.config.MaxIterations)
				return nil, nil
			case d.Decision == model.DecisionApprove:
				result.Reason = "validator approved no changes"
				return nil, nil
			default:
				result.Reason = "validator rejected the proposed changes"
				return nil, nil
			}
		}
	}
}

// compare runs the comparator. A non-empty reason ends the review unchanged.
func (r *Reconciler) compare(ctx context.Context, current *model.TemplateRecord, refs []service.Reference, guideline *model.RecheckGuideline, iteration int) (model.ComparisonResult, string, error) {
	data := prompts.CompareData{
		TemplateType: current.TemplateType,
		Template:     current.Content,
		References:   refs,
		Iteration:    iteration,
	}
	if guideline != nil && !guideline.IsEmpty() {
		data.Guideline = guideline
	}
	prompt, err := r.deps.Prompts.BuildCompare(data)
	if err != nil {
		return model.ComparisonResult{}, "", err
	}

	raw, err := r.deps.Reasoner.Complete(ctx, prompt.Instruction, prompt.Context)
	if err != nil {
		if ctx.Err() != nil {
			return model.ComparisonResult{}, "", ctx.Err()
		}
		slog.Warn("Comparator failed", "template_type", current.TemplateType, "error", err)
		return model.ComparisonResult{}, "comparator failed: " + err.Error(), nil
	}

	decoded := llm.Decode(raw, model.ComparisonResult{}, llm.DefaultStrategies()...)
	if decoded.Outcome == llm.OutcomeFailed {
		slog.Warn("Comparator reply unparseable", "template_type", current.TemplateType, "error", decoded.Err)
		return model.ComparisonResult{}, "comparator reply unparseable", nil
	}

	c := Normalize(decoded.Value)
	if !c.HasChanges {
		return c, "comparator found no changes", nil
	}

	c.UpdatedTemplate = unescapeBody(c.UpdatedTemplate)
	if decision := r.deps.Guard.CheckStructure(c.UpdatedTemplate, current.Content, current.Content); !decision.Accepted {
		slog.Warn("Regenerated template rejected",
			"template_type", current.TemplateType,
			"reason", decision.Summary())
		return c, "regenerated template rejected: " + decision.Summary(), nil
	}
	if dropped := droppedPlaceholders(current.Content, c.UpdatedTemplate); len(dropped) > 0 {
		slog.Warn("Regenerated template dropped placeholders",
			"template_type", current.TemplateType,
			"placeholders", dropped)
		return c, "regenerated template dropped placeholders: " + strings.Join(dropped, ", "), nil
	}
	return c, "", nil
}

// droppedPlaceholders lists placeholders of current that updated no longer has.
func droppedPlaceholders(current, updated string) []string {
	kept := make(map[string]struct{})
	for _, name := range assembler.Placeholders(updated) {
		kept[name] = struct{}{}
	}
	var dropped []string
	for _, name := range assembler.Placeholders(current) {
		if _, ok := kept[name]; !ok {
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// validate runs the validator. A non-empty reason ends the review unchanged.
func (r *Reconciler) validate(ctx context.Context, current *model.TemplateRecord, comparison *model.ComparisonResult) (model.ValidationDecision, string, error) {
	prompt, err := r.deps.Prompts.BuildReview(prompts.ReviewData{
		Comparison:   comparison,
		TemplateType: current.TemplateType,
		Template:     current.Content,
	})
	if err != nil {
		return model.ValidationDecision{}, "", err
	}

	raw, err := r.deps.Reasoner.Complete(ctx, prompt.Instruction, prompt.Context)
	if err != nil {
		if ctx.Err() != nil {
			return model.ValidationDecision{}, "", ctx.Err()
		}
		slog.Warn("Validator failed", "template_type", current.TemplateType, "error", err)
		return model.ValidationDecision{}, "validator failed: " + err.Error(), nil
	}

	decoded := llm.Decode(raw, model.ValidationDecision{}, llm.DefaultStrategies()...)
	if decoded.Outcome == llm.OutcomeFailed {
		slog.Warn("Validator reply unparseable", "template_type", current.TemplateType, "error", decoded.Err)
		return model.ValidationDecision{}, "validator reply unparseable", nil
	}

	d := decoded.Value
	d.Decision = model.Decision(strings.ToUpper(strings.TrimSpace(string(d.Decision))))
	if d.Decision != model.DecisionApprove && d.Decision != model.DecisionReject {
		return d, fmt.Sprintf("validator decision %q not recognized", d.Decision), nil
	}
	for i := range d.ApprovedChanges {
		d.ApprovedChanges[i] = normalizeChange(d.ApprovedChanges[i])
	}
	return d, "", nil
}

// Normalize reconciles has_changes with the change list: a flag without
// changes, or changes without the flag, both mean no changes.
func Normalize(c model.ComparisonResult) model.ComparisonResult {
	if c.HasChanges && len(c.Changes) == 0 {
		c.HasChanges = false
	}
	if !c.HasChanges {
		c.Changes = nil
		c.UpdatedTemplate = ""
		return c
	}
	for i := range c.Changes {
		c.Changes[i] = normalizeChange(c.Changes[i])
	}
	return c
}

func normalizeChange(c model.Change) model.Change {
	c.Type = model.ChangeType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	c.Severity = model.Severity(strings.ToLower(strings.TrimSpace(string(c.Severity))))
	c.Section = strings.TrimSpace(c.Section)
	return c
}

// unescapeBody undoes a second layer of escaping some replies put on the
// regenerated template.
func unescapeBody(body string) string {
	if strings.Contains(body, "\n") || !strings.Contains(body, `\n`) {
		return body
	}
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`).Replace(body)
}
