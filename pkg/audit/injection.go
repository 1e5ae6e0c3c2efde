package audit

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on free text.
type InjectionCheckResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	Value       string // The value that was checked
}

// CheckForInjection uses libinjection to detect SQL injection patterns in value.
// Returns nil if no injection is detected.
//
// Example:
//
//	result := CheckForInjection("how many rows?")
//	// result == nil
//
//	result = CheckForInjection("'; DROP TABLE users--")
//	// result.Fingerprint == "s&1c" (or similar)
func CheckForInjection(value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Fingerprint: string(fingerprint),
		Value:       value,
	}
}
