package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type SignInMethod string

const (
	SignInAssertion SignInMethod = "assertion"
	SignInGoogle    SignInMethod = "google"
)

type Session struct {
	ID             string       `json:"id"`
	Identifier     string       `json:"identifier"`
	Method         SignInMethod `json:"method"`
	UserAgent      string       `json:"userAgent"`
	IPAddress      string       `json:"ipAddress"`
	IsValid        bool         `json:"isValid"`
	CreatedAt      int64        `json:"createdAt"`
	LastActivityAt int64        `json:"lastActivityAt"`
}

// Claims is the payload of the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	SessionID  string `json:"sid"`
	Identifier string `json:"identifier"`
}

// Assertion is the verifier's answer for a sign-in assertion.
type Assertion struct {
	Status   string `json:"status"`
	Email    string `json:"email"`
	Audience string `json:"audience"`
	Expires  int64  `json:"expires"`
	Issuer   string `json:"issuer"`
	Reason   string `json:"reason,omitempty"`
}

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
