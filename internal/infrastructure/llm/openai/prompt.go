package openai

import (
	"encoding/json"
	"strings"

	"github.com/greenvolt/docverify/internal/core/domain"
)

const extractionInstructions = `You are an expert AI assistant for a clean energy installation company. Your task is to extract specific fields from the provided document.
Analyze the document and return a JSON object containing an array of extracted fields.
Each object in the array should have the following structure: { "fieldName": "...", "fieldValue": "...", "confidenceScore": 0.0-1.0, "validationNotes": "..." }.
- 'fieldName': The name of the field being extracted.
- 'fieldValue': The extracted value as a string. If a value cannot be found, use null.
- 'confidenceScore': Your confidence in the accuracy of the extraction, from 0.0 (not confident) to 1.0 (very confident).
- 'validationNotes': Any notes about the extraction, such as if the value is partially obscured, hard to read, or seems unusual. If no notes, use an empty string.

Do not return any text outside of the JSON object.
`

var extractionFieldInstructions = map[domain.DocumentType]string{
	domain.TypeIdentityDocument: `Extract the following fields from this government-issued ID:
- "fullName"
- "address"
- "idNumber"
- "dateOfBirth" (in YYYY-MM-DD format)
- "expirationDate" (in YYYY-MM-DD format)
`,
	domain.TypeRebateForm: `Extract the following fields from this rebate application form:
- "applicantName"
- "propertyAddress"
- "installerCompany"
- "equipmentModel"
- "equipmentSerialNumber"
- "installationDate" (in YYYY-MM-DD format)
- "rebateAmount" (as a number)
`,
	domain.TypeLoanDocument: `Extract the following fields from this loan document:
- "borrowerName"
- "coBorrowerName" (if present)
- "loanAmount" (as a number)
- "interestRate" (as a percentage)
- "loanTerm" (in months or years)
- "lenderName"
- "isSigned" (boolean, true if a signature is visible, false otherwise)
`,
	domain.TypeInstallationPhoto: `Analyze this installation photo. Extract the following details:
- "equipmentType" (e.g., 'Solar Panel', 'Heat Pump', 'Battery')
- "equipmentBrandAndModel" (if visible on the equipment)
- "location" (e.g., 'Rooftop', 'Basement', 'Exterior Wall')
- "obviousIssues" (Describe any visible damage, incorrect wiring, or other installation problems. If none, state "No obvious issues.")
`,
}

func extractionPrompt(documentType domain.DocumentType) string {
	return extractionInstructions + "\n" + extractionFieldInstructions[documentType]
}

const analysisInstructions = `You are an expert AI compliance officer for a European clean energy installation company. Your task is to analyze the extracted fields from a document and identify any errors, inconsistencies, or compliance issues.
Analyze these fields based on the document type and common requirements for that document in the European clean energy sector.

Return a JSON object with a key "errors" containing an array of error objects.
Each error object must have the following structure: { "fieldName": "...", "errorMessage": "...", "suggestedFix": "...", "severityLevel": "..." }.
- 'fieldName': The name of the field with the error. Use null for document-level errors (e.g., multiple missing fields).
- 'errorMessage': A clear and concise description of the error.
- 'suggestedFix': A specific, actionable suggestion for how to fix the error.
- 'severityLevel': The severity of the error, which must be one of 'critical', 'high', 'medium', or 'low'.

If there are no errors, return an empty array: { "errors": [] }.
Do not return any text outside of the JSON object.
`

var analysisChecks = map[domain.DocumentType]string{
	domain.TypeIdentityDocument: `Analyze this government-issued ID. Check for:
- Completeness: All fields (fullName, address, idNumber, dateOfBirth, expirationDate) must be present.
- Expiration: The expirationDate must not be in the past.
- Format: dateOfBirth and expirationDate should be valid dates.
- Quality: If confidence scores are low, suggest a better quality image might be needed.
`,
	domain.TypeRebateForm: `Analyze this rebate form. Check for:
- Completeness: All fields must be filled, especially applicantName, propertyAddress, installationDate, and rebateAmount.
- Signatures: Although not an extracted field, mention if a signature section is likely missing or incomplete based on common forms. Suggest checking for a signature.
- Consistency: The information should be logical (e.g., installationDate should be in the past).
- Format: rebateAmount should be a number. installationDate should be a valid date.
`,
	domain.TypeLoanDocument: `Analyze this loan document. Check for:
- Completeness: Key fields like borrowerName, loanAmount, and lenderName must be present.
- Signatures: The 'isSigned' field is critical. If false, this is a high-severity error.
- Consistency: Check if loan terms seem plausible.
`,
	domain.TypeInstallationPhoto: `Analyze this installation photo analysis. Check for:
- Critical Issues: The 'obviousIssues' field is most important. If it contains anything other than "No obvious issues," flag it as a high-severity issue.
- Completeness: Ensure equipmentType and location are identified. If brand/model is missing, flag as a low-severity issue.
`,
}

type promptField struct {
	FieldName       string  `json:"fieldName"`
	FieldValue      *string `json:"fieldValue"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

func errorAnalysisPrompt(documentType domain.DocumentType, fields []domain.ExtractedField) string {
	compact := make([]promptField, 0, len(fields))
	for _, f := range fields {
		compact = append(compact, promptField{
			FieldName:       f.FieldName,
			FieldValue:      f.FieldValue,
			ConfidenceScore: f.ConfidenceScore,
		})
	}
	fieldsJSON, _ := json.MarshalIndent(compact, "", "  ")

	var b strings.Builder
	b.WriteString(analysisInstructions)
	b.WriteString("\nHere are the extracted fields:\n")
	b.Write(fieldsJSON)
	b.WriteString("\n\n")
	b.WriteString(analysisChecks[documentType])
	return b.String()
}
