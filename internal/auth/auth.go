package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
)

// UsernameClaim is the claim carrying the player's display name.
const UsernameClaim = "username"

var ErrNoUsername = errors.New("token has no username claim")

// Auth issues and verifies player tokens shared by the game and socket services.
type Auth struct {
	TokenAuth *jwtauth.JWTAuth
	ttl       time.Duration
}

func New(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{
		TokenAuth: jwtauth.New("HS256", []byte(secret), nil),
		ttl:       ttl,
	}
}

// IssueToken signs a token for username that expires after the configured ttl.
func (a *Auth) IssueToken(username, userId string) (string, error) {
	claims := map[string]interface{}{
		UsernameClaim: username,
		"user_id":     userId,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, a.ttl)

	_, tokenString, err := a.TokenAuth.Encode(claims)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verifier looks for the token in the "jwt" query parameter and the
// Authorization header. Browsers cannot set headers on a websocket upgrade.
func (a *Auth) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(a.TokenAuth, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader)
}

// UsernameFromContext returns the username of a request that passed
// jwtauth.Authenticator.
func UsernameFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", err
	}
	name, ok := claims[UsernameClaim].(string)
	if !ok || name == "" {
		return "", ErrNoUsername
	}
	return name, nil
}
