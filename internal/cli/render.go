package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/reconcile"
	"github.com/Veraticus/tender/internal/service"
)

const timeLayout = "2006-01-02 15:04"

func row(label, value string) string {
	return LabelStyle.Render(label) + value
}

// RenderClassification renders a classification result. With explain the
// reason trace follows, one decision per line.
func RenderClassification(c *model.ClassificationResult, explain bool) string {
	annex := c.AnnexLabel()
	if annex == "" {
		annex = "없음"
	}
	alternatives := make([]string, 0, len(c.AlternativeMethods))
	for _, m := range c.AlternativeMethods {
		alternatives = append(alternatives, m.Label())
	}

	lines := []string{
		row("Method", BoldStyle.Render(c.RecommendedMethod.Label())),
		row("Annex", annex),
		row("Set-aside", c.SMERestriction.Label()),
		row("Type", c.ProcurementType.Label()),
		row("Contract", fmt.Sprintf("%s / %s", c.ContractNature.ContractType, c.ContractNature.ExecutionType)),
		row("Price excl. VAT", model.FormatAmount(c.EstimatedPriceExclVAT)+"원"),
		row("Published", model.FormatAmount(c.PublishedThreshold)+"원"),
		row("Confidence", fmt.Sprintf("%.2f", c.Confidence)),
	}
	if len(alternatives) > 0 {
		lines = append(lines, row("Alternatives", strings.Join(alternatives, ", ")))
	}
	if c.Rationale != "" {
		lines = append(lines, row("Rationale", c.Rationale))
	}

	out := RenderBox(ScaleIcon+" Classification", strings.Join(lines, "\n"))
	if explain && len(c.ReasonTrace) > 0 {
		out += "\n" + TitleStyle.Render("Reason trace") + "\n" + c.Explain()
	}
	return out
}

// RenderSession renders the session header, issues, and error log. The
// document follows when showDocument is set.
func RenderSession(s *drafting.Session, showDocument bool) string {
	lines := []string{
		row("Session", s.ID),
		row("State", StateStyle(s.State).Render(string(s.State))),
		row("Updated", s.UpdatedAt.Local().Format(timeLayout)),
	}
	if s.TemplateType != "" {
		lines = append(lines, row("Template", s.TemplateType+" "+s.TemplateVersion))
	}
	if s.Classification != nil {
		lines = append(lines, row("Method", s.Classification.RecommendedMethod.Label()))
	}
	lines = append(lines,
		row("Retries", fmt.Sprintf("%d/%d", s.RetryCount, s.MaxRetry)),
		row("Service calls", fmt.Sprintf("%d (%d failed)", s.ServiceCalls, s.ServiceFailures)),
	)
	if s.NeedsReview {
		lines = append(lines, row("Review", WarningStyle.Render("needs human review")))
	}
	if len(s.Unresolved) > 0 {
		lines = append(lines, row("Unresolved", WarningStyle.Render(strings.Join(s.Unresolved, ", "))))
	}

	var b strings.Builder
	b.WriteString(RenderBox(DocumentIcon+" Drafting session", strings.Join(lines, "\n")))

	if len(s.Issues) > 0 {
		b.WriteString("\n" + TitleStyle.Render("Validation issues") + "\n")
		b.WriteString(RenderIssues(s.Issues))
	}
	if len(s.ErrorLog) > 0 {
		b.WriteString("\n" + TitleStyle.Render("Error log") + "\n")
		for _, e := range s.ErrorLog {
			fmt.Fprintf(&b, "%s %s %s\n", SubtleStyle.Render(e.At.Local().Format(timeLayout)), SubtleStyle.Render("["+string(e.State)+"]"), e.Message)
		}
	}
	if showDocument {
		doc := s.Document
		if doc == "" {
			doc = s.Baseline
		}
		if doc != "" {
			b.WriteString("\n" + doc + "\n")
		}
	}
	return b.String()
}

// RenderIssues renders validation issues one per line, most severe styled loudest.
func RenderIssues(issues []model.ValidationIssue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "%s [%s] %s", SeverityStyle(issue.Severity).Render(strings.ToUpper(string(issue.Severity))), issue.Section, issue.Message)
		if issue.Suggestion != "" {
			b.WriteString(SubtleStyle.Render(" → " + issue.Suggestion))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSessionList renders sessions as a table.
func RenderSessionList(sessions []*drafting.Session) string {
	if len(sessions) == 0 {
		return FormatInfo("No drafting sessions yet") + "\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATE\tTEMPLATE\tRETRIES\tREVIEW\tUPDATED")
	for _, s := range sessions {
		review := ""
		if s.NeedsReview {
			review = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%d/%d\t%s\t%s\n",
			s.ID, s.State, s.TemplateType, s.TemplateVersion, s.RetryCount, s.MaxRetry, review, s.UpdatedAt.Local().Format(timeLayout))
	}
	_ = w.Flush()
	return b.String()
}

// RenderTemplates renders template history, newest first.
func RenderTemplates(templateType string, records []model.TemplateRecord) string {
	if len(records) == 0 {
		return FormatInfo(fmt.Sprintf("No stored versions of %s; drafting uses the built-in template", templateType)) + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(FolderIcon+" "+templateType) + "\n")
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tCREATED\tID\tSUMMARY")
	for i, r := range records {
		version := r.Version
		if i == 0 {
			version += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", version, r.CreatedAt.Local().Format(timeLayout), shortID(r.ID), r.Summary)
	}
	_ = w.Flush()
	return b.String()
}

// RenderReconcile renders the outcome of a reconciliation.
func RenderReconcile(r *reconcile.Result) string {
	lines := []string{
		row("Template", fmt.Sprintf("%s %s", r.TemplateType, r.Current.Version)),
		row("References", fmt.Sprintf("%d", r.References)),
		row("Iterations", fmt.Sprintf("%d", r.Iterations)),
	}

	var header string
	if r.Status == reconcile.StatusChanged {
		header = FormatSuccess(fmt.Sprintf("Saved %s %s", r.TemplateType, r.Saved.Version))
		lines = append(lines, row("Summary", r.Summary))
	} else {
		header = FormatInfo("Template unchanged")
		lines = append(lines, row("Reason", r.Reason))
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(strings.Join(lines, "\n") + "\n")
	for _, c := range r.Changes {
		fmt.Fprintf(&b, "  %s [%s] %s → %s", SeverityStyle(c.Severity).Render(strings.ToUpper(string(c.Type))), c.Section, quote(c.OldText), quote(c.NewText))
		if c.Frequency != "" {
			b.WriteString(SubtleStyle.Render(" (" + c.Frequency + ")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderThreshold renders the published threshold and where it came from.
func RenderThreshold(t service.Threshold) string {
	lines := []string{
		row("Amount", model.FormatAmount(t.Amount)+"원"),
		row("Source", string(t.Source)),
	}
	if !t.FetchedAt.IsZero() {
		lines = append(lines, row("As of", t.FetchedAt.Local().Format(time.DateOnly)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func quote(s string) string {
	if s == "" {
		return "∅"
	}
	return fmt.Sprintf("%q", s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
