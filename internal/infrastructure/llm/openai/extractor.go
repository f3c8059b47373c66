package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

// Extractor runs vision (or PDF text) field extraction against the
// configured extraction model.
type Extractor struct {
	client *Client
	files  ports.FileStore
}

func NewExtractor(client *Client, files ports.FileStore) *Extractor {
	return &Extractor{client: client, files: files}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.ExtractedField, error) {
	const op = "extract"

	rc, err := e.files.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, op, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, op, fmt.Errorf("read stored file: %w", err))
	}

	prompt := extractionPrompt(doc.DocumentType)

	var messages []message
	if isPDF(doc.MimeType, data) {
		text, err := pdfText(data)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, op, err)
		}
		messages = []message{{
			Role:    "user",
			Content: prompt + "\nDocument text:\n" + text,
		}}
	} else {
		messages = []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: imageDataURL(doc.MimeType, data)}},
			},
		}}
	}

	content, err := e.client.chatJSON(ctx, op, e.client.cfg.ExtractionModel, messages)
	if err != nil {
		return nil, err
	}
	return parseExtractedFields(content)
}

// parseExtractedFields unwraps the model envelope. The model is told to wrap
// the field array in a single-key object, but the key name is not guaranteed,
// so the first array-valued key wins. Non-object elements and elements missing
// the required keys are dropped rather than failing the whole extraction.
func parseExtractedFields(content string) ([]domain.ExtractedField, error) {
	const op = "extract"

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, op, fmt.Errorf("parse completion: %w", err))
	}

	keys := make([]string, 0, len(envelope))
	for k := range envelope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var elems []json.RawMessage
	found := false
	for _, k := range keys {
		if !isJSONArray(envelope[k]) {
			continue
		}
		if err := json.Unmarshal(envelope[k], &elems); err != nil {
			continue
		}
		found = true
		break
	}
	if !found {
		return nil, domain.WrapError(domain.ErrMalformedResponse, op,
			fmt.Errorf("completion object has no array-valued key"))
	}

	fields := make([]domain.ExtractedField, 0, len(elems))
	for _, elem := range elems {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(elem, &raw); err != nil {
			continue
		}
		name, ok := stringValue(raw["fieldName"])
		if !ok || name == "" {
			continue
		}
		valueRaw, hasValue := raw["fieldValue"]
		scoreRaw, hasScore := raw["confidenceScore"]
		if !hasValue || !hasScore {
			continue
		}

		var score float64
		if err := json.Unmarshal(scoreRaw, &score); err != nil {
			continue
		}

		field := domain.ExtractedField{
			FieldName:       name,
			FieldValue:      looseString(valueRaw),
			ConfidenceScore: clampScore(score),
		}
		if notes, ok := stringValue(raw["validationNotes"]); ok {
			field.ValidationNotes = notes
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func stringValue(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// looseString stringifies whatever the model put in a value slot. Numbers and
// booleans come back occasionally despite the prompt asking for strings.
func looseString(raw json.RawMessage) *string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	case bool:
		s = fmt.Sprintf("%t", t)
	default:
		b, _ := json.Marshal(t)
		s = string(b)
	}
	return &s
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
