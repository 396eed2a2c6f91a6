package model

import (
	"fmt"
	"strings"
)

// ProcurementMethod is the procedure selected for an announcement.
type ProcurementMethod string

// Procurement method constants.
const (
	MethodSimplifiedNegotiated ProcurementMethod = "simplified negotiated purchase"
	MethodFullReview           ProcurementMethod = "full qualification review"
)

// Label returns the Korean wording used in announcement text.
func (m ProcurementMethod) Label() string {
	switch m {
	case MethodSimplifiedNegotiated:
		return "소액수의"
	case MethodFullReview:
		return "적격심사"
	default:
		return string(m)
	}
}

// Annex is one of the ranked sub-rule-sets of the full-review track.
type Annex string

// Annex constants, highest price band first.
const (
	Annex1 Annex = "annex-1"
	Annex2 Annex = "annex-2"
	Annex3 Annex = "annex-3"
)

// Label returns the Korean annex name, for example 별표1.
func (a Annex) Label() string {
	switch a {
	case Annex1:
		return "별표1"
	case Annex2:
		return "별표2"
	case Annex3:
		return "별표3"
	default:
		return string(a)
	}
}

// AllAnnexes lists every annex in ascending tier order.
func AllAnnexes() []Annex {
	return []Annex{Annex3, Annex2, Annex1}
}

// SMERestriction is the supplier-pool set-aside for an announcement.
type SMERestriction string

// Set-aside constants.
const (
	SMESmallBusiness SMERestriction = "small-business-set-aside"
	SMEMedium        SMERestriction = "sme-set-aside"
	SMENone          SMERestriction = "none"
)

// Label returns the Korean description of who may bid.
func (s SMERestriction) Label() string {
	switch s {
	case SMESmallBusiness:
		return "소기업 또는 소상공인"
	case SMEMedium:
		return "중소기업 또는 소상공인"
	default:
		return "제한 없음"
	}
}

// ContractType distinguishes lump-sum contracts from unit-price contracts.
type ContractType string

// Contract type constants.
const (
	ContractStandard  ContractType = "standard"
	ContractUnitPrice ContractType = "unit-price"
)

// ExecutionType distinguishes sole from joint performance.
type ExecutionType string

// Execution type constants.
const (
	ExecutionSole  ExecutionType = "sole"
	ExecutionJoint ExecutionType = "joint"
)

// ContractNature describes how the contract is priced and performed.
type ContractNature struct {
	ContractType  ContractType  `json:"contract_type"`
	ExecutionType ExecutionType `json:"execution_type"`
}

// TraceStep records one decision made while classifying.
// Threshold comparisons fill Operator and Threshold; applied defaults only set Note.
type TraceStep struct {
	Rule      string  `json:"rule"`
	Operator  string  `json:"operator,omitempty"`
	Branch    string  `json:"branch"`
	Note      string  `json:"note,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Outcome   bool    `json:"outcome"`
}

// String renders the step as a single human-readable line.
func (s TraceStep) String() string {
	if s.Operator == "" {
		if s.Note != "" {
			return fmt.Sprintf("%s: %s -> %s", s.Rule, s.Note, s.Branch)
		}
		return fmt.Sprintf("%s -> %s", s.Rule, s.Branch)
	}
	return fmt.Sprintf("%s: %s %s %s is %t -> %s",
		s.Rule, FormatAmount(s.Value), s.Operator, FormatAmount(s.Threshold), s.Outcome, s.Branch)
}

// ClassificationResult is the rule engine's advisory determination for one record.
type ClassificationResult struct {
	AppliedAnnex          *Annex              `json:"applied_annex"`
	RecommendedMethod     ProcurementMethod   `json:"recommended_method"`
	Rationale             string              `json:"rationale"`
	SMERestriction        SMERestriction      `json:"sme_restriction"`
	ProcurementType       ProcurementType     `json:"procurement_type"`
	ContractNature        ContractNature      `json:"contract_nature"`
	AlternativeMethods    []ProcurementMethod `json:"alternative_methods"`
	ReasonTrace           []TraceStep         `json:"reason_trace"`
	Confidence            float64             `json:"confidence"`
	EstimatedPriceExclVAT float64             `json:"estimated_price_excl_vat"`
	PublishedThreshold    float64             `json:"published_threshold"`
}

// AnnexLabel returns the Korean annex name or an empty string when no annex applies.
func (c *ClassificationResult) AnnexLabel() string {
	if c.AppliedAnnex == nil {
		return ""
	}
	return c.AppliedAnnex.Label()
}

// Explain renders the reason trace one step per line.
func (c *ClassificationResult) Explain() string {
	lines := make([]string, 0, len(c.ReasonTrace))
	for i, step := range c.ReasonTrace {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, step.String()))
	}
	return strings.Join(lines, "\n")
}
