package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/greenvolt/docverify/internal/core/domain"
)

// Analyzer runs compliance analysis over previously extracted fields using
// the configured analysis model.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) Analyze(ctx context.Context, documentType domain.DocumentType, fields []domain.ExtractedField) ([]domain.DocumentError, error) {
	const op = "analyze"

	// A document with no extracted fields is a finding in itself, not a
	// reason to call the model.
	if len(fields) == 0 {
		return []domain.DocumentError{{
			FieldName:     nil,
			ErrorType:     domain.ErrorTypeAIAnalysis,
			ErrorMessage:  "No fields were extracted from this document.",
			SuggestedFix:  "The document may be empty, unreadable, or the initial processing failed. Please re-process the document or upload a new version.",
			SeverityLevel: domain.SeverityHigh,
		}}, nil
	}

	prompt := errorAnalysisPrompt(documentType, fields)
	content, err := a.client.chatJSON(ctx, op, a.client.cfg.AnalysisModel, []message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	return parseDetectedErrors(content)
}

// parseDetectedErrors requires a top-level "errors" array. Non-object entries
// and entries missing any of the required keys are dropped, unknown severities
// fall back to medium.
func parseDetectedErrors(content string) ([]domain.DocumentError, error) {
	const op = "analyze"

	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, op, fmt.Errorf("parse completion: %w", err))
	}
	if envelope.Errors == nil || !isJSONArray(envelope.Errors) {
		return nil, domain.WrapError(domain.ErrMalformedResponse, op,
			fmt.Errorf("completion object has no errors array"))
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(envelope.Errors, &elems); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, op,
			fmt.Errorf("errors key is not an array: %w", err))
	}

	detected := make([]domain.DocumentError, 0, len(elems))
	for _, elem := range elems {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(elem, &raw); err != nil {
			continue
		}
		message, hasMessage := stringValue(raw["errorMessage"])
		fix, hasFix := stringValue(raw["suggestedFix"])
		severity, hasSeverity := stringValue(raw["severityLevel"])
		if !hasMessage || !hasFix || !hasSeverity {
			continue
		}

		entry := domain.DocumentError{
			ErrorType:     domain.ErrorTypeAIAnalysis,
			ErrorMessage:  message,
			SuggestedFix:  fix,
			SeverityLevel: domain.NormalizeSeverity(strings.ToLower(strings.TrimSpace(severity))),
		}
		if name, ok := stringValue(raw["fieldName"]); ok && name != "" {
			entry.FieldName = &name
		}
		detected = append(detected, entry)
	}
	return detected, nil
}
