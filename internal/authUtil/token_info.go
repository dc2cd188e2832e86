package authUtil

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var authLog = log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime)

// TokenInfo is what can be learned locally about a bearer token. Opaque tokens yield an
// empty TokenInfo with IsJwt false.
type TokenInfo struct {
	IsJwt     bool
	Issuer    string
	Subject   string
	ExpiresAt *time.Time
}

// InspectBearerToken decodes the claims of a JWT shaped token without verifying its
// signature. The directory remains the authority on whether the token is valid.
func InspectBearerToken(token string) TokenInfo {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}
	}
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{
		IsJwt:   true,
		Issuer:  claims.Issuer,
		Subject: claims.Subject,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info
}

func (t TokenInfo) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// WarnIfExpired logs a warning for an expired JWT bearer token and reports whether it did.
func WarnIfExpired(token string, now time.Time) bool {
	info := InspectBearerToken(token)
	if !info.Expired(now) {
		return false
	}
	authLog.Printf("WARNING: bearer token for %s expired at %s; requests will likely be rejected", info.Subject, info.ExpiresAt.Format(time.RFC3339))
	return true
}
