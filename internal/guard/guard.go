// Package guard decides whether externally generated announcement text may
// replace the previously accepted candidate.
package guard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/model"
)

// Defaults for Config.
const (
	DefaultMinLengthRatio = 0.8
	DefaultMarkerPrefix   = "## "
	DefaultClosingMarker  = "위와 같이 공고합니다"
)

// Reason identifies why a candidate was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonEmpty           Reason = "empty"
	ReasonTooShort        Reason = "too_short"
	ReasonMissingMarker   Reason = "missing_marker"
	ReasonMissingClosing  Reason = "missing_closing_marker"
	ReasonMethodMismatch  Reason = "method_mismatch"
	ReasonAnnexMismatch   Reason = "annex_mismatch"
	ReasonServiceFailure  Reason = "service_failure"
	ReasonUnparseableText Reason = "unparseable"
)

// Violation is one failed check.
type Violation struct {
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Reason, v.Detail)
}

// Decision is the outcome of checking one candidate. It is a value, not an
// error: rejection is an expected result.
type Decision struct {
	Violations []Violation `json:"violations,omitempty"`
	Accepted   bool        `json:"accepted"`
}

// Reject builds a rejected decision with a single violation.
func Reject(reason Reason, detail string) Decision {
	return Decision{Violations: []Violation{{Reason: reason, Detail: detail}}}
}

// Summary joins the violations into one line for logs and session history.
func (d Decision) Summary() string {
	if d.Accepted {
		return "accepted"
	}
	parts := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}

// Config tunes the structural checks.
type Config struct {
	MarkerPrefix   string
	ClosingMarker  string
	MinLengthRatio float64
}

// Guard applies the completeness checks.
type Guard struct {
	config Config
}

// New creates a guard, filling unset fields with defaults.
func New(cfg Config) *Guard {
	if cfg.MinLengthRatio <= 0 {
		cfg.MinLengthRatio = DefaultMinLengthRatio
	}
	if cfg.MarkerPrefix == "" {
		cfg.MarkerPrefix = DefaultMarkerPrefix
	}
	if cfg.ClosingMarker == "" {
		cfg.ClosingMarker = DefaultClosingMarker
	}
	return &Guard{config: cfg}
}

// Default returns a guard with the default configuration.
func Default() *Guard {
	return New(Config{})
}

// Check applies every rule: the structural rules against prior and baseline,
// and the consistency rule against the classification when it is not nil.
func (g *Guard) Check(candidate, prior, baseline string, c *model.ClassificationResult) Decision {
	d := g.CheckStructure(candidate, prior, baseline)
	if c == nil || strings.TrimSpace(candidate) == "" {
		return d
	}

	d.Violations = append(d.Violations, ConsistencyViolations(candidate, c)...)
	d.Accepted = len(d.Violations) == 0
	return d
}

// CheckStructure applies the length, marker, and closing rules only.
func (g *Guard) CheckStructure(candidate, prior, baseline string) Decision {
	if strings.TrimSpace(candidate) == "" {
		return Reject(ReasonEmpty, "candidate is empty")
	}

	var violations []Violation

	candidateLen := utf8.RuneCountInString(candidate)
	priorLen := utf8.RuneCountInString(prior)
	if float64(candidateLen) < g.config.MinLengthRatio*float64(priorLen) {
		violations = append(violations, Violation{
			Reason: ReasonTooShort,
			Detail: fmt.Sprintf("%d characters is below %.0f%% of %d", candidateLen, g.config.MinLengthRatio*100, priorLen),
		})
	}

	present := make(map[string]struct{})
	for _, m := range g.Markers(candidate) {
		present[m] = struct{}{}
	}
	for _, m := range g.Markers(baseline) {
		if _, ok := present[m]; !ok {
			violations = append(violations, Violation{Reason: ReasonMissingMarker, Detail: m})
		}
	}

	if !strings.Contains(candidate, g.config.ClosingMarker) {
		violations = append(violations, Violation{Reason: ReasonMissingClosing, Detail: g.config.ClosingMarker})
	}

	return Decision{Violations: violations, Accepted: len(violations) == 0}
}

// Markers returns the section headings of doc in order.
func (g *Guard) Markers(doc string) []string {
	var markers []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.HasPrefix(line, g.config.MarkerPrefix) {
			markers = append(markers, strings.TrimSpace(strings.TrimPrefix(line, g.config.MarkerPrefix)))
		}
	}
	return markers
}

// ConsistencyViolations reports method-section text that names a different
// procurement method or annex than the classification. Other sections carry
// plan text such as statute citations ("시행령 별표3") and are not checked;
// a document without the method section is checked whole.
func ConsistencyViolations(doc string, c *model.ClassificationResult) []Violation {
	if sections := assembler.ExtractSections(doc, []string{assembler.MethodHeading}); len(sections) > 0 {
		doc = sections[0].Body
	}

	var violations []Violation

	for _, other := range []model.ProcurementMethod{model.MethodSimplifiedNegotiated, model.MethodFullReview} {
		if other != c.RecommendedMethod && strings.Contains(doc, other.Label()) {
			violations = append(violations, Violation{
				Reason: ReasonMethodMismatch,
				Detail: fmt.Sprintf("text mentions %s but the classification is %s", other.Label(), c.RecommendedMethod.Label()),
			})
		}
	}

	for _, annex := range model.AllAnnexes() {
		applied := c.AppliedAnnex != nil && *c.AppliedAnnex == annex
		if !applied && strings.Contains(doc, annex.Label()) {
			violations = append(violations, Violation{
				Reason: ReasonAnnexMismatch,
				Detail: fmt.Sprintf("text mentions %s which does not apply", annex.Label()),
			})
		}
	}
	if c.AppliedAnnex != nil && !strings.Contains(doc, c.AppliedAnnex.Label()) {
		violations = append(violations, Violation{
			Reason: ReasonAnnexMismatch,
			Detail: fmt.Sprintf("text does not state %s", c.AppliedAnnex.Label()),
		})
	}

	return violations
}
