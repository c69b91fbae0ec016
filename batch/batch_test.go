package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"credibility-scanner/classifier"
	"credibility-scanner/features"
)

func newProcessor(t *testing.T, dim int) *Processor {
	t.Helper()
	schema, err := features.LoadSchema("../models/feature_schema.yaml")
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	model := &classifier.LogisticModel{Intercept: 0, Coefficients: make([]float64, dim)}
	// domain_age_years is the first column; older domains score as trusted.
	model.Coefficients[0] = 1
	model.Intercept = -5
	return NewProcessor(classifier.NewPipeline(features.NewAligner(schema), model), zap.NewNop())
}

func TestReadCSV(t *testing.T) {
	table, err := ReadFile("testdata/sites.csv")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(table.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(table.Records))
	}

	rows := table.Rows()
	if rows[0]["domain_age_years"].Num != 26 {
		t.Errorf("age = %+v", rows[0]["domain_age_years"])
	}
	if rows[1]["whois_privacy_enabled"].Num != 1 {
		t.Errorf("privacy flag = %+v", rows[1]["whois_privacy_enabled"])
	}
	if _, ok := rows[1]["hosting_type"]; ok {
		t.Error("empty cell should be missing")
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]interface{}{"domain_age_years", "has_https", "cdn_used"})
	f.SetSheetRow(sheet, "A2", &[]interface{}{12, "Yes", "yes"})
	f.SetSheetRow(sheet, "A3", &[]interface{}{0.5, "No", "no"})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(table.Records) != 2 || len(table.Header) != 3 {
		t.Fatalf("table = %+v", table)
	}
	if got := table.Rows()[1]["domain_age_years"].Num; got != 0.5 {
		t.Errorf("age = %v", got)
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestRunAndWrite(t *testing.T) {
	table, err := ReadFile("testdata/sites.csv")
	if err != nil {
		t.Fatal(err)
	}
	p := newProcessor(t, 67)

	res, err := p.Run(context.Background(), table)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Summary{Total: 3, Trusted: 2, Untrusted: 1}
	if res.Summary != want {
		t.Errorf("summary = %+v, want %+v", res.Summary, want)
	}

	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	header := out[0]
	if got := header[len(header)-3:]; strings.Join(got, ",") != "Prediction,Confidence,Trust_Probability" {
		t.Errorf("appended columns = %v", got)
	}
	last := out[2][len(header)-3:]
	if last[0] != "Untrusted" {
		t.Errorf("young domain row = %v", last)
	}
	if out[1][len(header)-3] != "Trusted" {
		t.Errorf("old domain row = %v", out[1][len(header)-3:])
	}
}

func TestRunMismatch(t *testing.T) {
	table, _ := ReadFile("testdata/sites.csv")
	_, err := newProcessor(t, 40).Run(context.Background(), table)

	var mm *features.MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestRunNoRows(t *testing.T) {
	_, err := newProcessor(t, 67).Run(context.Background(), &Table{Header: []string{"domain_age_years"}})
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}
