package assembler

import "strings"

const sectionPrefix = "## "

// MethodHeading is the section rendered by MethodSection.
const MethodHeading = "2. 입찰 및 낙찰 방식"

// VariableSections are the section headings whose content depends on the
// purchase plan. Validation looks only at these.
var VariableSections = []string{
	MethodHeading,
	"3. 입찰참가자격",
	"4. 기타 조건",
	"5. 입찰 일정",
}

// Section is one level-two heading and the text under it.
type Section struct {
	Heading string
	Body    string
}

// SplitSections breaks a markdown document at its level-two headings. Text
// before the first heading is dropped.
func SplitSections(doc string) []Section {
	var sections []Section
	var current *Section
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, sectionPrefix) {
			flush()
			current = &Section{Heading: strings.TrimSpace(strings.TrimPrefix(line, sectionPrefix))}
			body = body[:0]
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

// ExtractSections returns the bodies of the requested headings in request order.
// Missing headings are skipped.
func ExtractSections(doc string, headings []string) []Section {
	byHeading := make(map[string]Section)
	for _, s := range SplitSections(doc) {
		if _, seen := byHeading[s.Heading]; !seen {
			byHeading[s.Heading] = s
		}
	}

	out := make([]Section, 0, len(headings))
	for _, h := range headings {
		if s, ok := byHeading[h]; ok {
			out = append(out, s)
		}
	}
	return out
}

// RenderSections joins sections back into markdown.
func RenderSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, sectionPrefix+s.Heading+"\n"+s.Body)
	}
	return strings.Join(parts, "\n\n")
}
