// Package redact masks PII-shaped substrings in query result rows before they
// leave the service. Masking is a pure function: non-string values pass
// through untouched, and masked output no longer matches the source patterns,
// so a second pass is a no-op.
package redact

import "regexp"

const (
	phonePlaceholder = "***-PHONE-***"
	cardPlaceholder  = "****-CARD-****"
)

var (
	emailPattern = regexp.MustCompile(`([A-Za-z0-9])[A-Za-z0-9._%+-]*@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`)
)

// MaskValue applies the email, phone, and long-digit-run masks in that order.
// The ordering is part of the contract: emails are masked first so an address
// containing digits is not mangled by the digit-run mask.
func MaskValue(value string) string {
	masked := emailPattern.ReplaceAllString(value, "$1***@***")
	masked = phonePattern.ReplaceAllString(masked, phonePlaceholder)
	masked = cardPattern.ReplaceAllString(masked, cardPlaceholder)
	return masked
}

// MaskRow returns a copy of row with every string value masked. A nil row
// yields nil.
func MaskRow(row map[string]any) map[string]any {
	if row == nil {
		return nil
	}
	masked := make(map[string]any, len(row))
	for column, value := range row {
		if text, ok := value.(string); ok {
			masked[column] = MaskValue(text)
			continue
		}
		masked[column] = value
	}
	return masked
}

// MaskRows masks every row in the slice.
func MaskRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	masked := make([]map[string]any, len(rows))
	for i, row := range rows {
		masked[i] = MaskRow(row)
	}
	return masked
}
