package chat

import (
	"errors"
	"net/http"

	myMiddleware "pairchat/internal/middleware"
)

// We define an interface for what we need from the User Service
// This keeps packages loosely coupled
type TokenValidator interface {
	ValidateToken(tokenString string) (int, string, error)
	// Returns userID, username, error
}

// Identity is the result of a successful handshake authentication.
type Identity struct {
	UserID   int
	Username string
}

// The caller branches on these to pick the right close code.
var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptyClaims  = errors.New("token payload missing user id")
)

// AuthGate verifies the session credential carried by the handshake
// request's cookie and extracts the caller's identity.
type AuthGate struct {
	validator TokenValidator
}

func NewAuthGate(v TokenValidator) *AuthGate {
	return &AuthGate{validator: v}
}

func (g *AuthGate) Authenticate(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(myMiddleware.TokenCookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrMissingToken
	}

	userID, username, err := g.validator.ValidateToken(cookie.Value)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if userID == 0 {
		return nil, ErrEmptyClaims
	}
	return &Identity{UserID: userID, Username: username}, nil
}
