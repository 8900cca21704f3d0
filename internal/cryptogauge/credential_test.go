package cryptogauge

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestCredential(t *testing.T, expiresAt *time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{Subject: "cryptogauge"}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("Failed to sign credential: %v", err)
	}

	return signed
}

func TestInspectBearerCredential(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Hour)
	soon := now.Add(2 * 24 * time.Hour)
	later := now.Add(30 * 24 * time.Hour)

	tests := []struct {
		name       string
		credential string
		expected   credentialStatus
	}{
		{name: "expired", credential: signTestCredential(t, &expired), expected: credentialStatusExpired},
		{name: "expiring soon", credential: signTestCredential(t, &soon), expected: credentialStatusExpiringSoon},
		{name: "valid", credential: signTestCredential(t, &later), expected: credentialStatusValid},
		{name: "no expiry", credential: signTestCredential(t, nil), expected: credentialStatusUnknown},
		{name: "not a jwt", credential: "plain-api-key", expected: credentialStatusUnknown},
		{name: "empty", credential: "", expected: credentialStatusUnknown},
	}

	for _, test := range tests {
		status, _ := inspectBearerCredential(test.credential, now)
		if status != test.expected {
			t.Errorf("%s: expected status %d, got %d", test.name, test.expected, status)
		}
	}
}

func TestCredentialExpiryIsReadWithoutVerification(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	// the signing key is unknown to us, the expiry must still be readable
	parsed, err := credentialExpiry(signTestCredential(t, &expiresAt))
	if err != nil {
		t.Fatalf("Failed to read expiry: %v", err)
	}

	if !parsed.Equal(expiresAt) {
		t.Fatalf("Expected expiry %v, got %v", expiresAt, parsed)
	}

	if _, err := credentialExpiry(signTestCredential(t, nil)); err != errCredentialHasNoExpiry {
		t.Fatalf("Expected errCredentialHasNoExpiry, got %v", err)
	}
}

func TestBearerCredentialDiagnostic(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Minute)
	later := now.Add(30 * 24 * time.Hour)

	if _, err := testBearerCredential("", now); err == nil {
		t.Error("A missing credential should fail the diagnostic")
	}

	if _, err := testBearerCredential(signTestCredential(t, &expired), now); err == nil {
		t.Error("An expired credential should fail the diagnostic")
	}

	info, err := testBearerCredential(signTestCredential(t, &later), now)
	if err != nil {
		t.Errorf("A valid credential should pass the diagnostic, got %v", err)
	}

	if info == "" {
		t.Error("Expected the expiry to be reported")
	}
}
