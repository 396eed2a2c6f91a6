// Package assembler fills an announcement template from a classification and
// an extracted purchase-plan record.
package assembler

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tender/internal/model"
)

// FieldSource is the lookup layer that supplied a placeholder value.
type FieldSource string

// Lookup layers in precedence order.
const (
	SourceExtracted FieldSource = "extracted"
	SourceDerived   FieldSource = "derived"
	SourceDefault   FieldSource = "default"
)

// DefaultDeliveryDays is used when no delivery period can be determined.
const DefaultDeliveryDays = 90

// Bid deadline offsets from the announcement date, by method.
const (
	SimplifiedBidDays = 7
	FullReviewBidDays = 14
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// DefaultValues are the boilerplate values used when nothing else resolves a field.
func DefaultValues() map[string]string {
	return map[string]string{
		"organization":           "발주기관명",
		"contact_department":     "담당부서",
		"contact_person":         "담당자명",
		"contact_phone":          "02-1234-5678",
		"contact_email":          "contact@example.go.kr",
		"qualification_detail":   "별도 공고 참조",
		"required_documents":     "입찰공고문 참조",
		"delivery_deadline_days": strconv.Itoa(DefaultDeliveryDays),
	}
}

// Document is an assembled announcement.
type Document struct {
	Sources    map[string]FieldSource `json:"sources"`
	Content    string                 `json:"content"`
	Unresolved []string               `json:"unresolved"`
}

// Assemble resolves every placeholder in template. Lookup order is extracted
// fields, derived fields, then defaults; anything else is left in place and
// reported as unresolved. The result depends only on the arguments.
func Assemble(c *model.ClassificationResult, r *model.ExtractedRecord, template string, now time.Time) Document {
	layers := []struct {
		values map[string]string
		source FieldSource
	}{
		{extractedFields(r), SourceExtracted},
		{derivedFields(c, r, now), SourceDerived},
		{DefaultValues(), SourceDefault},
	}

	sources := make(map[string]FieldSource)
	unresolved := make(map[string]struct{})

	content := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		for _, layer := range layers {
			if v, ok := layer.values[name]; ok {
				sources[name] = layer.source
				return v
			}
		}
		unresolved[name] = struct{}{}
		return match
	})

	names := make([]string, 0, len(unresolved))
	for name := range unresolved {
		names = append(names, name)
	}
	sort.Strings(names)

	return Document{Content: content, Unresolved: names, Sources: sources}
}

// Placeholders lists the distinct placeholder names in template, sorted.
func Placeholders(template string) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func extractedFields(r *model.ExtractedRecord) map[string]string {
	fields := make(map[string]string)
	set := func(name, value string) {
		if v := strings.TrimSpace(value); v != "" {
			fields[name] = v
		}
	}

	set("project_name", r.ProjectName)
	set("item_name", r.ItemName)
	set("organization", r.Organization)
	set("contact_department", r.ContactDepartment)
	set("contact_person", r.ContactPerson)
	set("contact_phone", r.ContactPhone)
	set("contact_email", r.ContactEmail)
	set("restricted_region", r.RestrictedRegion)
	set("contract_period", r.ContractPeriod)

	if pt, ok := model.ParseProcurementType(r.ProcurementType); ok {
		fields["procurement_type"] = pt.Label()
	}
	if r.TotalBudgetInclVAT != nil {
		fields["total_budget_vat"] = model.FormatAmount(*r.TotalBudgetInclVAT)
	}
	if r.DeliveryDeadlineDays != nil && *r.DeliveryDeadlineDays > 0 {
		fields["delivery_deadline_days"] = strconv.Itoa(*r.DeliveryDeadlineDays)
	}

	return fields
}

func derivedFields(c *model.ClassificationResult, r *model.ExtractedRecord, now time.Time) map[string]string {
	fields := make(map[string]string)

	bidDays := FullReviewBidDays
	if c.RecommendedMethod == model.MethodSimplifiedNegotiated {
		bidDays = SimplifiedBidDays
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	bidDeadline := day.AddDate(0, 0, bidDays).Add(10 * time.Hour)
	opening := bidDeadline.AddDate(0, 0, 1).Add(time.Hour)
	award := opening.AddDate(0, 0, 7)

	fields["announcement_date"] = formatDate(day)
	fields["bid_deadline"] = formatDateHour(bidDeadline)
	fields["opening_date"] = formatDateHour(opening)
	fields["award_date"] = formatDate(award)
	fields["announcement_number"] = fmt.Sprintf("공고 제%04d-%02d-%02d호", day.Year(), day.Month(), day.Day())

	fields["estimated_price"] = model.FormatAmount(c.EstimatedPriceExclVAT)
	fields["procurement_method"] = c.RecommendedMethod.Label()
	fields["procurement_method_section"] = MethodSection(c)
	fields["applied_annex"] = c.AnnexLabel()
	if c.AppliedAnnex == nil {
		fields["applied_annex"] = "해당 없음"
	}
	fields["sme_restriction"] = c.SMERestriction.Label()
	fields["qualification_block"] = QualificationBlock(c, r)
	fields["other_conditions_block"] = OtherConditionsBlock(r)

	if r.TotalBudgetInclVAT == nil {
		fields["total_budget_vat"] = model.FormatAmount(c.EstimatedPriceExclVAT * 1.1)
	}
	if name := strings.TrimSpace(r.ProjectName); name != "" {
		fields["item_name"] = name
	}
	if r.ContractPeriod != "" {
		fields["delivery_deadline_days"] = strconv.Itoa(ParsePeriodDays(r.ContractPeriod))
	}

	return fields
}

var (
	monthsPattern = regexp.MustCompile(`(\d+)\s*개월`)
	daysPattern   = regexp.MustCompile(`(\d+)\s*일`)
)

// ParsePeriodDays converts a contract period such as "6개월" or "45일" to days.
// Months count as 30 days; anything unparseable yields DefaultDeliveryDays.
func ParsePeriodDays(period string) int {
	if m := monthsPattern.FindStringSubmatch(period); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n * 30
		}
	}
	if m := daysPattern.FindStringSubmatch(period); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return DefaultDeliveryDays
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d년 %02d월 %02d일", t.Year(), t.Month(), t.Day())
}

func formatDateHour(t time.Time) string {
	return fmt.Sprintf("%s %02d시", formatDate(t), t.Hour())
}
