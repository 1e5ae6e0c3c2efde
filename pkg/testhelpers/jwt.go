// Package testhelpers provides utilities for testing datadoc-engine components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
	"time"
)

// GenerateUnsignedJWT creates a token with a valid structure but no signature
// (alg: none). The service must reject it; tests use it to prove that.
func GenerateUnsignedJWT(sub, email string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s","iss":"datadoc-engine","exp":%d`, sub, time.Now().Add(time.Hour).Unix())
	if email != "" {
		payload += fmt.Sprintf(`,"email":"%s"`, email)
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateUnsignedJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateUnsignedJWTWithBearer(sub, email string) string {
	return "Bearer " + GenerateUnsignedJWT(sub, email)
}
