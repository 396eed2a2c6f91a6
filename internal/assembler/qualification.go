package assembler

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tender/internal/model"
)

type industry struct {
	name    string
	law     string
	article string
}

// knownIndustries maps G2B industry codes to the statute that licenses them.
var knownIndustries = map[string]industry{
	"4608": {name: "고압가스판매업", law: "고압가스안전관리법", article: "제4조"},
	"1468": {name: "소프트웨어사업자", law: "소프트웨어 진흥법", article: "제58조"},
	"0036": {name: "전기공사업", law: "전기공사업법", article: "제4조"},
}

const g2bRequirement = `### ① G2B 기본 등록 요건
국가종합전자조달시스템 입찰참가자격등록규정에 따라 전자입찰서 제출 마감일 전일까지 나라장터(G2B)에 입찰참가자격을 등록한 자`

const legalDisqualification = `### ④ 법적 결격사유 배제
국가계약법 제27조 및 동법 시행령 제37조에 따른 입찰 참가자격이 있는 자
- 조세포탈, 부정수급 등 법령 위반으로 제재를 받은 자는 제외
- 부정당업자로 등록된 자는 제외`

// QualificationBlock renders the bidder qualification section.
func QualificationBlock(c *model.ClassificationResult, r *model.ExtractedRecord) string {
	blocks := []string{g2bRequirement}

	if industryBlock := industryRequirement(r); industryBlock != "" {
		blocks = append(blocks, industryBlock)
	}
	if c.SMERestriction != model.SMENone && c.SMERestriction != "" {
		blocks = append(blocks, fmt.Sprintf("### ③ 기업규모 요건\n%s에 해당하는 기업만 입찰 참가 가능", c.SMERestriction.Label()))
	}
	blocks = append(blocks, legalDisqualification)

	if notes := strings.TrimSpace(r.QualificationNotes); notes != "" {
		blocks = append(blocks, "### 추가 요건\n"+notes)
	}

	return strings.Join(blocks, "\n\n")
}

func industryRequirement(r *model.ExtractedRecord) string {
	var parts []string
	for _, code := range r.DetailItemCodes {
		parts = append(parts, fmt.Sprintf("- 세부품명번호: %s에 해당하는 물품을 공급할 수 있는 자", code))
	}
	for _, code := range r.IndustryCodes {
		if info, ok := knownIndustries[code]; ok {
			parts = append(parts, fmt.Sprintf("- 「%s」 %s에 의한 %s(업종코드: %s)", info.law, info.article, info.name, code))
			continue
		}
		parts = append(parts, fmt.Sprintf("- 업종코드 %s에 해당하는 업종을 영위하는 자", code))
	}
	if len(parts) == 0 {
		return ""
	}
	return "### ② 물품/업종 요건\n" + strings.Join(parts, "\n")
}

// OtherConditionsBlock renders the joint-contract and region-restriction section.
func OtherConditionsBlock(r *model.ExtractedRecord) string {
	joint := "### 공동계약\n해당 없음"
	if r.IsJointContract {
		joint = "### 공동계약\n본 계약은 공동이행이 가능하며, 공동계약 체결을 원하는 경우 입찰서에 공동이행 계약서를 첨부하여 제출하여야 합니다."
	}

	region := "### 지역제한\n해당 없음"
	if r.HasRegionRestriction {
		name := strings.TrimSpace(r.RestrictedRegion)
		if name == "" {
			name = "공고기관 소재지"
		}
		region = fmt.Sprintf("### 지역제한\n납품지가 %s에 위치한 업체만 입찰 참가 가능합니다.", name)
	}

	return joint + "\n\n" + region
}

// MethodSection renders the procurement method section. Its wording comes only
// from the classification so generated text can be checked against it.
func MethodSection(c *model.ClassificationResult) string {
	var lines []string
	switch c.RecommendedMethod {
	case model.MethodSimplifiedNegotiated:
		lines = append(lines,
			"- 계약방법: 소액수의 (견적서 제출에 의한 수의계약)",
			"- 낙찰자 결정방법: 예정가격 이하 최저가격 견적 제출자")
	default:
		lines = append(lines,
			"- 계약방법: 일반경쟁입찰",
			fmt.Sprintf("- 낙찰자 결정방법: 적격심사 (적격심사 세부기준 %s 적용)", c.AnnexLabel()))
	}

	contract := "총액계약"
	if c.ContractNature.ContractType == model.ContractUnitPrice {
		contract = "단가계약"
	}
	execution := "단독이행"
	if c.ContractNature.ExecutionType == model.ExecutionJoint {
		execution = "공동이행 허용"
	}
	lines = append(lines,
		fmt.Sprintf("- 계약형태: %s, %s", contract, execution),
		fmt.Sprintf("- 참가 제한: %s", c.SMERestriction.Label()))

	return strings.Join(lines, "\n")
}
