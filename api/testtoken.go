package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestTokenRequest describes a token minted for test mode authentication.
type TestTokenRequest struct {
	UserID    string
	Audience  string
	RoleClaim string
	Roles     []string
	TTL       time.Duration
}

// SignTestToken returns an HS256 token accepted by an Auth created with
// WithTestSecret(secret).
func SignTestToken(secret string, req TestTokenRequest) (string, error) {
	if secret == "" {
		return "", errors.New("test secret must be set")
	}
	if req.UserID == "" {
		return "", errors.New("user id must be set")
	}
	if req.TTL <= 0 {
		req.TTL = time.Hour
	}
	claims := jwt.MapClaims{
		"sub": req.UserID,
		"exp": time.Now().Add(req.TTL).Unix(),
	}
	if req.Audience != "" {
		claims["aud"] = req.Audience
	}
	if len(req.Roles) > 0 {
		claim := req.RoleClaim
		if claim == "" {
			claim = "roles"
		}
		claims[claim] = req.Roles
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
