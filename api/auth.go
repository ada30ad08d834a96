package api

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const defaultJWKSCacheTTL = 15 * time.Minute

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errForbidden            = errors.New("admin role required")
)

// Principal identifies the caller of a request.
type Principal struct {
	UserID string
	Admin  bool
}

// Auth validates incoming JWT tokens.
type Auth struct {
	JWKS       *keyfunc.JWKS
	Audience   string
	Issuer     string
	TestMode   bool
	TestSecret []byte
	RoleClaim  string
	AdminRole  string

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
	now         func() time.Time
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// AuthOption customises an Auth.
type AuthOption func(*Auth)

// WithTestSecret switches the validator to HS256 tokens signed with secret.
func WithTestSecret(secret string) AuthOption {
	return func(a *Auth) {
		a.TestMode = true
		a.TestSecret = []byte(secret)
	}
}

// WithAdminRole sets the claim holding the caller's roles and the role that
// grants access to admin routes.
func WithAdminRole(claim, role string) AuthOption {
	return func(a *Auth) {
		a.RoleClaim = claim
		a.AdminRole = role
	}
}

// WithKeyCacheTTL overrides how long resolved signing keys are cached by kid.
func WithKeyCacheTTL(ttl time.Duration) AuthOption {
	return func(a *Auth) { a.keyCacheTTL = ttl }
}

// NewAuth creates a new Auth instance.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string, opts ...AuthOption) *Auth {
	a := &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		RoleClaim:   "roles",
		AdminRole:   "admin",
		keyCacheTTL: defaultJWKSCacheTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.TestMode {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	}
	return a
}

// Authenticate validates the bearer token in an Authorization header value.
func (a *Auth) Authenticate(header string) (Principal, error) {
	token, err := bearerToken(header)
	if err != nil {
		return Principal{}, err
	}
	return a.PrincipalFromBearer(token)
}

// PrincipalFromBearer validates a raw JWT and extracts the caller.
func (a *Auth) PrincipalFromBearer(token string) (Principal, error) {
	if token == "" {
		return Principal{}, errBadAuthorization
	}

	var parsedToken *jwt.Token
	var err error
	if a.TestMode {
		parsedToken, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.TestSecret, nil
		})
	} else {
		parsedToken, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			return a.keyForToken(t)
		})
	}
	if err != nil {
		return Principal{}, err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid claims")
	}

	now := a.now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Principal{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Principal{}, errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return Principal{}, errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return Principal{}, errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return Principal{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, errors.New("missing sub")
	}

	return Principal{UserID: sub, Admin: a.hasAdminRole(claims)}, nil
}

// hasAdminRole accepts the role claim as a single string, a space separated
// list or a JSON array.
func (a *Auth) hasAdminRole(claims jwt.MapClaims) bool {
	if a.RoleClaim == "" || a.AdminRole == "" {
		return false
	}
	switch v := claims[a.RoleClaim].(type) {
	case string:
		for _, role := range strings.Fields(v) {
			if role == a.AdminRole {
				return true
			}
		}
	case []any:
		for _, role := range v {
			if s, ok := role.(string); ok && s == a.AdminRole {
				return true
			}
		}
	}
	return false
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if a.now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: a.now().Add(a.keyCacheTTL)})
	}
	return key, nil
}

// bearerToken extracts the JWT from an Authorization header value. The
// scheme is matched case-insensitively.
func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthorization
	}
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
