package cryptogauge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const credentialExpiryWarningPeriod = 7 * 24 * time.Hour

var errCredentialHasNoExpiry = errors.New("credential has no expiry claim")

// credentialExpiry reads the exp claim of a JWT bearer credential without
// verifying its signature, the upstream is the one that verifies it.
func credentialExpiry(credential string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(credential, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing credential: %w", err)
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, errCredentialHasNoExpiry
	}

	return claims.ExpiresAt.Time, nil
}

type credentialStatus int

const (
	credentialStatusUnknown credentialStatus = iota
	credentialStatusValid
	credentialStatusExpiringSoon
	credentialStatusExpired
)

func inspectBearerCredential(credential string, now time.Time) (credentialStatus, time.Time) {
	if credential == "" {
		return credentialStatusUnknown, time.Time{}
	}

	expiresAt, err := credentialExpiry(credential)
	if err != nil {
		return credentialStatusUnknown, time.Time{}
	}

	switch {
	case !now.Before(expiresAt):
		return credentialStatusExpired, expiresAt
	case expiresAt.Sub(now) < credentialExpiryWarningPeriod:
		return credentialStatusExpiringSoon, expiresAt
	}

	return credentialStatusValid, expiresAt
}

func logBearerCredentialStatus(credential string) {
	if credential == "" {
		slog.Warn("No upstream bearer token configured, requests will be sent without credentials")
		return
	}

	status, expiresAt := inspectBearerCredential(credential, time.Now())

	switch status {
	case credentialStatusExpired:
		slog.Warn("Upstream bearer token has expired", "expired_at", expiresAt)
	case credentialStatusExpiringSoon:
		slog.Warn("Upstream bearer token expires soon", "expires_at", expiresAt)
	case credentialStatusUnknown:
		slog.Debug("Upstream bearer token expiry could not be determined")
	}
}
