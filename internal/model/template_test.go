package model

import (
	"strings"
	"testing"
)

func TestTemplateRecord_Validate(t *testing.T) {
	valid := TemplateRecord{
		ID:           "t1",
		TemplateType: "goods",
		Version:      "1.0.0",
		Content:      "## 1. 입찰에 부치는 사항",
	}

	tests := []struct {
		name    string
		errMsg  string
		mutate  func(*TemplateRecord)
		wantErr bool
	}{
		{name: "valid", mutate: func(*TemplateRecord) {}},
		{name: "missing id", mutate: func(r *TemplateRecord) { r.ID = "" }, wantErr: true, errMsg: "template ID is required"},
		{name: "missing type", mutate: func(r *TemplateRecord) { r.TemplateType = "" }, wantErr: true, errMsg: "template type is required"},
		{name: "missing version", mutate: func(r *TemplateRecord) { r.Version = "" }, wantErr: true, errMsg: "template version is required"},
		{name: "missing content", mutate: func(r *TemplateRecord) { r.Content = "" }, wantErr: true, errMsg: "template content is required"},
		{
			name:    "summary too long",
			mutate:  func(r *TemplateRecord) { r.Summary = strings.Repeat("가", MaxSummaryLength+1) },
			wantErr: true,
			errMsg:  "summary exceeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			err := rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestTruncateSummary(t *testing.T) {
	long := strings.Repeat("공", MaxSummaryLength+10)
	if got := []rune(TruncateSummary(long)); len(got) != MaxSummaryLength {
		t.Errorf("TruncateSummary() length = %d, want %d", len(got), MaxSummaryLength)
	}
	if got := TruncateSummary("short"); got != "short" {
		t.Errorf("TruncateSummary() = %q, want unchanged", got)
	}
}

func TestParseProcurementType(t *testing.T) {
	tests := []struct {
		raw  string
		want ProcurementType
		ok   bool
	}{
		{"goods", ProcurementGoods, true},
		{" Goods ", ProcurementGoods, true},
		{"물품", ProcurementGoods, true},
		{"용역", ProcurementServices, true},
		{"공사", ProcurementConstruction, true},
		{"leasing", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseProcurementType(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseProcurementType(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractedRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  ExtractedRecord
		wantErr bool
	}{
		{name: "budget only", record: ExtractedRecord{ProcurementType: "goods", TotalBudgetInclVAT: Float64Ptr(1000)}},
		{name: "estimate only", record: ExtractedRecord{ProcurementType: "goods", EstimatedAmount: 1000}},
		{name: "no type", record: ExtractedRecord{EstimatedAmount: 1000}, wantErr: true},
		{name: "no amounts", record: ExtractedRecord{ProcurementType: "goods"}, wantErr: true},
		{name: "negative budget", record: ExtractedRecord{ProcurementType: "goods", TotalBudgetInclVAT: Float64Ptr(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
