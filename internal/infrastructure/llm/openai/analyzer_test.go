package openai

import (
	"context"
	"testing"

	"github.com/greenvolt/docverify/internal/core/domain"
)

func testAnalyzer(serverURL string) *Analyzer {
	client := New(Config{BaseURL: serverURL, APIKey: "test-key", RequestsPerMin: 6000}, nil)
	return NewAnalyzer(client)
}

func sampleFields() []domain.ExtractedField {
	name := "Jane Doe"
	return []domain.ExtractedField{
		{FieldName: "fullName", FieldValue: &name, ConfidenceScore: 0.9},
	}
}

func TestAnalyzeShortCircuitsOnEmptyFieldSet(t *testing.T) {
	calls := 0
	server := completionServer(t, `{"errors": []}`, &calls, nil)
	defer server.Close()

	analyzer := testAnalyzer(server.URL)
	detected, err := analyzer.Analyze(context.Background(), domain.TypeRebateForm, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if calls != 0 {
		t.Fatalf("empty field set must not reach the model, got %d calls", calls)
	}
	if len(detected) != 1 {
		t.Fatalf("expected one synthetic error, got %d", len(detected))
	}
	if detected[0].FieldName != nil {
		t.Fatalf("synthetic error must be document-level, got field %q", *detected[0].FieldName)
	}
	if detected[0].SeverityLevel != domain.SeverityHigh {
		t.Fatalf("synthetic error severity = %s, want high", detected[0].SeverityLevel)
	}
}

func TestAnalyzeParsesAndFiltersErrors(t *testing.T) {
	content := `{
		"errors": [
			{"fieldName": "expirationDate", "errorMessage": "ID is expired", "suggestedFix": "Request a current ID", "severityLevel": "critical"},
			{"fieldName": null, "errorMessage": "Low confidence overall", "suggestedFix": "Upload a sharper scan", "severityLevel": "urgent"},
			{"errorMessage": "missing the other keys"}
		]
	}`
	var lastBody map[string]any
	server := completionServer(t, content, nil, &lastBody)
	defer server.Close()

	analyzer := testAnalyzer(server.URL)
	detected, err := analyzer.Analyze(context.Background(), domain.TypeIdentityDocument, sampleFields())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(detected) != 2 {
		t.Fatalf("expected 2 errors after filtering, got %d", len(detected))
	}
	if detected[0].FieldName == nil || *detected[0].FieldName != "expirationDate" {
		t.Fatalf("unexpected first error: %+v", detected[0])
	}
	if detected[0].SeverityLevel != domain.SeverityCritical {
		t.Fatalf("severity = %s, want critical", detected[0].SeverityLevel)
	}
	if detected[1].FieldName != nil {
		t.Fatalf("null fieldName should stay document-level")
	}
	if detected[1].SeverityLevel != domain.SeverityMedium {
		t.Fatalf("unknown severity should normalize to medium, got %s", detected[1].SeverityLevel)
	}
	for _, d := range detected {
		if d.ErrorType != domain.ErrorTypeAIAnalysis {
			t.Fatalf("error type = %q, want %q", d.ErrorType, domain.ErrorTypeAIAnalysis)
		}
	}

	if got := lastBody["model"]; got != "gpt-4o-mini" {
		t.Fatalf("unexpected model %v", got)
	}
}

func TestAnalyzeAcceptsEmptyErrorsArray(t *testing.T) {
	server := completionServer(t, `{"errors": []}`, nil, nil)
	defer server.Close()

	analyzer := testAnalyzer(server.URL)
	detected, err := analyzer.Analyze(context.Background(), domain.TypeLoanDocument, sampleFields())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(detected) != 0 {
		t.Fatalf("expected no errors, got %d", len(detected))
	}
}

func TestAnalyzeDropsNonObjectEntries(t *testing.T) {
	content := `{
		"errors": [
			{"fieldName": "loanAmount", "errorMessage": "Amount missing", "suggestedFix": "Re-scan page 1", "severityLevel": "high"},
			42,
			"not an error object"
		]
	}`
	server := completionServer(t, content, nil, nil)
	defer server.Close()

	analyzer := testAnalyzer(server.URL)
	detected, err := analyzer.Analyze(context.Background(), domain.TypeLoanDocument, sampleFields())
	if err != nil {
		t.Fatalf("stray non-object entries must not fail the run, got %v", err)
	}
	if len(detected) != 1 || detected[0].ErrorMessage != "Amount missing" {
		t.Fatalf("expected the single valid error to survive, got %+v", detected)
	}
}

func TestAnalyzeMalformedWithoutErrorsArray(t *testing.T) {
	for _, content := range []string{`{"issues": []}`, `{"errors": "none"}`, `{"errors": null}`} {
		server := completionServer(t, content, nil, nil)
		analyzer := testAnalyzer(server.URL)

		_, err := analyzer.Analyze(context.Background(), domain.TypeLoanDocument, sampleFields())
		server.Close()
		if !domain.IsKind(err, domain.ErrMalformedResponse) {
			t.Fatalf("content %s: expected malformed-response error, got %v", content, err)
		}
	}
}
