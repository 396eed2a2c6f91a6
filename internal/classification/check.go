package classification

import (
	"fmt"

	"github.com/Veraticus/tender/internal/model"
)

// Mismatch is a field of a classification that disagrees with its own price.
type Mismatch struct {
	Field    string
	Got      string
	Expected string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s is %s but the price calls for %s", m.Field, m.Got, m.Expected)
}

// Recheck reapplies the price rules to a stored result and reports every field
// that no longer follows from its estimated price and published threshold.
func Recheck(c *model.ClassificationResult) []Mismatch {
	if c == nil {
		return nil
	}
	price, published := c.EstimatedPriceExclVAT, c.PublishedThreshold
	t := &tracer{}

	var mismatches []Mismatch

	method := model.MethodFullReview
	if price <= SmallPurchaseLimit {
		method = model.MethodSimplifiedNegotiated
	}
	if c.RecommendedMethod != method {
		mismatches = append(mismatches, Mismatch{Field: "method", Got: c.RecommendedMethod.Label(), Expected: method.Label()})
	}

	got := "없음"
	if c.AppliedAnnex != nil {
		got = c.AppliedAnnex.Label()
	}
	expected := "없음"
	if method == model.MethodFullReview {
		expected = selectAnnex(price, published, t).Label()
	}
	if got != expected {
		mismatches = append(mismatches, Mismatch{Field: "annex", Got: got, Expected: expected})
	}

	if setAside := selectSetAside(price, published, t); c.SMERestriction != setAside {
		mismatches = append(mismatches, Mismatch{Field: "set_aside", Got: c.SMERestriction.Label(), Expected: setAside.Label()})
	}

	return mismatches
}
