package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineRecorders(t *testing.T) {
	m := NewHTTPServerMetrics("api-test")

	m.RecordUpload("rebate_form")
	m.RecordUpload("rebate_form")
	m.RecordExtraction(3)
	m.RecordAnalysis(1)
	m.RecordInference("extract", nil)
	m.RecordInference("analyze", errors.New("model overloaded"))

	if got := testutil.ToFloat64(m.uploadsTotal.WithLabelValues("api-test", "rebate_form")); got != 2 {
		t.Fatalf("uploads_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.inferenceTotal.WithLabelValues("api-test", "extract", "success")); got != 1 {
		t.Fatalf("inference_total{extract,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inferenceTotal.WithLabelValues("api-test", "analyze", "error")); got != 1 {
		t.Fatalf("inference_total{analyze,error} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.extractedFields); got != 1 {
		t.Fatalf("extracted_fields series = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.detectedErrors); got != 1 {
		t.Fatalf("detected_errors series = %d, want 1", got)
	}
}

func TestNormalizePathCollapsesIDs(t *testing.T) {
	cases := map[string]string{
		"/v1/documents/abc-123/process": "/v1/documents/{document_id}",
		"/v1/errors/err-9/resolve":      "/v1/errors/{error_id}",
		"/v1/analytics":                 "/v1/analytics",
	}
	for path, want := range cases {
		if got := normalizePath(path); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", path, got, want)
		}
	}
}
