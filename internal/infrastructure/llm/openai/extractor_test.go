package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/greenvolt/docverify/internal/core/domain"
)

type fileStoreFake struct {
	files map[string][]byte
}

func (f *fileStoreFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	f.files[key] = raw
	return nil
}

func (f *fileStoreFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("no stored file %q", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func completionServer(t *testing.T, content string, calls *int, lastBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		if lastBody != nil {
			body := make(map[string]any)
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request body: %v", err)
			}
			*lastBody = body
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func testExtractor(t *testing.T, serverURL string, files *fileStoreFake) *Extractor {
	t.Helper()
	client := New(Config{BaseURL: serverURL, APIKey: "test-key", RequestsPerMin: 6000}, nil)
	return NewExtractor(client, files)
}

func imageDoc() *domain.Document {
	return &domain.Document{
		ID:           "doc-1",
		DocumentType: domain.TypeIdentityDocument,
		MimeType:     "image/png",
		StoragePath:  "doc-1_id.png",
	}
}

func TestExtractParsesAndFiltersFields(t *testing.T) {
	content := `{
		"fields": [
			{"fieldName": "fullName", "fieldValue": "Jane Doe", "confidenceScore": 0.92, "validationNotes": ""},
			{"fieldName": "idNumber", "fieldValue": null, "confidenceScore": 1.7},
			{"fieldName": "dateOfBirth", "fieldValue": "1990-01-02"},
			{"fieldValue": "orphan", "confidenceScore": 0.5}
		]
	}`
	var lastBody map[string]any
	server := completionServer(t, content, nil, &lastBody)
	defer server.Close()

	files := &fileStoreFake{files: map[string][]byte{"doc-1_id.png": []byte("png-bytes")}}
	extractor := testExtractor(t, server.URL, files)

	fields, err := extractor.Extract(context.Background(), imageDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields after filtering, got %d", len(fields))
	}
	if fields[0].FieldName != "fullName" || fields[0].FieldValue == nil || *fields[0].FieldValue != "Jane Doe" {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}
	if fields[1].FieldValue != nil {
		t.Fatalf("null fieldValue should map to nil, got %q", *fields[1].FieldValue)
	}
	if fields[1].ConfidenceScore != 1 {
		t.Fatalf("confidence should be clamped to 1, got %v", fields[1].ConfidenceScore)
	}

	if got := lastBody["model"]; got != "gpt-4o" {
		t.Fatalf("unexpected model %v", got)
	}
	format, _ := lastBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", lastBody["response_format"])
	}
}

func TestExtractSendsImageDataURL(t *testing.T) {
	var lastBody map[string]any
	server := completionServer(t, `{"fields": []}`, nil, &lastBody)
	defer server.Close()

	files := &fileStoreFake{files: map[string][]byte{"doc-1_id.png": []byte("png-bytes")}}
	extractor := testExtractor(t, server.URL, files)

	if _, err := extractor.Extract(context.Background(), imageDoc()); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	messages, _ := lastBody["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	parts, _ := first["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text+image parts, got %d", len(parts))
	}
	image, _ := parts[1].(map[string]any)
	urlPart, _ := image["image_url"].(map[string]any)
	url, _ := urlPart["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected image url prefix: %.40s", url)
	}
}

func TestExtractAcceptsAnyEnvelopeKey(t *testing.T) {
	content := `{"note": "done", "extracted": [{"fieldName": "location", "fieldValue": "Rooftop", "confidenceScore": 0.8}]}`
	server := completionServer(t, content, nil, nil)
	defer server.Close()

	files := &fileStoreFake{files: map[string][]byte{"doc-1_id.png": []byte("png-bytes")}}
	extractor := testExtractor(t, server.URL, files)

	fields, err := extractor.Extract(context.Background(), imageDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(fields) != 1 || fields[0].FieldName != "location" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestExtractDropsNonObjectArrayElements(t *testing.T) {
	content := `{
		"fields": [
			{"fieldName": "fullName", "fieldValue": "Jane Doe", "confidenceScore": 0.92},
			"junk",
			42,
			null
		]
	}`
	server := completionServer(t, content, nil, nil)
	defer server.Close()

	files := &fileStoreFake{files: map[string][]byte{"doc-1_id.png": []byte("png-bytes")}}
	extractor := testExtractor(t, server.URL, files)

	fields, err := extractor.Extract(context.Background(), imageDoc())
	if err != nil {
		t.Fatalf("stray non-object elements must not fail the run, got %v", err)
	}
	if len(fields) != 1 || fields[0].FieldName != "fullName" {
		t.Fatalf("expected the single valid field to survive, got %+v", fields)
	}
}

func TestExtractMalformedWithoutArrayValue(t *testing.T) {
	server := completionServer(t, `{"fields": "not an array"}`, nil, nil)
	defer server.Close()

	files := &fileStoreFake{files: map[string][]byte{"doc-1_id.png": []byte("png-bytes")}}
	extractor := testExtractor(t, server.URL, files)

	_, err := extractor.Extract(context.Background(), imageDoc())
	if !domain.IsKind(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed-response error, got %v", err)
	}
}

func TestExtractWrapsHTTPFailureAsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	files := &fileStoreFake{files: map[string][]byte{"doc-1_id.png": []byte("png-bytes")}}
	extractor := testExtractor(t, server.URL, files)

	_, err := extractor.Extract(context.Background(), imageDoc())
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestExtractMissingFileSkipsInference(t *testing.T) {
	calls := 0
	server := completionServer(t, `{"fields": []}`, &calls, nil)
	defer server.Close()

	extractor := testExtractor(t, server.URL, &fileStoreFake{})

	_, err := extractor.Extract(context.Background(), imageDoc())
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("inference endpoint must not be called, got %d calls", calls)
	}
}
