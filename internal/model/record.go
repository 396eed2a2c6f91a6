// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// ProcurementType is the kind of thing being procured.
type ProcurementType string

// Procurement type constants.
const (
	ProcurementGoods        ProcurementType = "goods"
	ProcurementServices     ProcurementType = "services"
	ProcurementConstruction ProcurementType = "construction"
)

var procurementAliases = map[string]ProcurementType{
	"goods":        ProcurementGoods,
	"물품":           ProcurementGoods,
	"services":     ProcurementServices,
	"service":      ProcurementServices,
	"용역":           ProcurementServices,
	"construction": ProcurementConstruction,
	"공사":           ProcurementConstruction,
}

// ParseProcurementType normalizes an English or Korean procurement type name.
func ParseProcurementType(raw string) (ProcurementType, bool) {
	pt, ok := procurementAliases[strings.ToLower(strings.TrimSpace(raw))]
	return pt, ok
}

// Label returns the Korean label used in announcement text.
func (p ProcurementType) Label() string {
	switch p {
	case ProcurementGoods:
		return "물품"
	case ProcurementServices:
		return "용역"
	case ProcurementConstruction:
		return "공사"
	default:
		return string(p)
	}
}

// ExtractedRecord holds the structured fields pulled from a purchase plan.
// It is produced by an extraction service and treated as immutable afterwards.
type ExtractedRecord struct {
	TotalBudgetInclVAT   *float64 `json:"total_budget_incl_vat,omitempty" yaml:"total_budget_incl_vat,omitempty"`
	DeliveryDeadlineDays *int     `json:"delivery_deadline_days,omitempty" yaml:"delivery_deadline_days,omitempty"`

	ProjectName          string   `json:"project_name" yaml:"project_name"`
	ItemName             string   `json:"item_name,omitempty" yaml:"item_name,omitempty"`
	ProcurementType      string   `json:"procurement_type" yaml:"procurement_type"`
	ContractPeriod       string   `json:"contract_period,omitempty" yaml:"contract_period,omitempty"`
	ProcurementMethodRaw string   `json:"procurement_method_raw,omitempty" yaml:"procurement_method_raw,omitempty"`
	RestrictedRegion     string   `json:"restricted_region,omitempty" yaml:"restricted_region,omitempty"`
	QualificationNotes   string   `json:"qualification_notes,omitempty" yaml:"qualification_notes,omitempty"`
	Organization         string   `json:"organization,omitempty" yaml:"organization,omitempty"`
	ContactDepartment    string   `json:"contact_department,omitempty" yaml:"contact_department,omitempty"`
	ContactPerson        string   `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
	ContactPhone         string   `json:"contact_phone,omitempty" yaml:"contact_phone,omitempty"`
	ContactEmail         string   `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
	DetailItemCodes      []string `json:"detail_item_codes,omitempty" yaml:"detail_item_codes,omitempty"`
	IndustryCodes        []string `json:"industry_codes,omitempty" yaml:"industry_codes,omitempty"`
	EstimatedAmount      float64  `json:"estimated_amount,omitempty" yaml:"estimated_amount,omitempty"`
	IsJointContract      bool     `json:"is_joint_contract,omitempty" yaml:"is_joint_contract,omitempty"`
	HasRegionRestriction bool     `json:"has_region_restriction,omitempty" yaml:"has_region_restriction,omitempty"`
}

// Validate checks the fields every downstream step relies on.
func (r *ExtractedRecord) Validate() error {
	if r.ProcurementType == "" {
		return fmt.Errorf("procurement type is required")
	}
	if r.TotalBudgetInclVAT != nil && *r.TotalBudgetInclVAT < 0 {
		return fmt.Errorf("total budget cannot be negative: %.0f", *r.TotalBudgetInclVAT)
	}
	if r.EstimatedAmount < 0 {
		return fmt.Errorf("estimated amount cannot be negative: %.0f", r.EstimatedAmount)
	}
	if r.TotalBudgetInclVAT == nil && r.EstimatedAmount == 0 {
		return fmt.Errorf("either total budget or estimated amount is required")
	}
	return nil
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
