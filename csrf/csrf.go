// Package csrf implements the double-submit-cookie check: the server hands
// out a random token in a readable cookie and state-changing requests must
// echo it in a header.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
)

const (
	// CookieName is the cookie carrying the token.
	CookieName = "csrf-token"
	// HeaderName is the request header that must echo the cookie.
	HeaderName = "x-csrf-token"
	// TokenBytes is the amount of randomness in a token.
	TokenBytes = 32
)

var (
	ErrMissingToken  = errors.New("missing token in cookie or header")
	ErrTokenMismatch = errors.New("token mismatch")
)

// GenerateToken returns TokenBytes random bytes, hex-encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Check compares the cookie and header tokens.
func Check(cookieToken, headerToken string) error {
	if cookieToken == "" || headerToken == "" {
		return ErrMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// Validate reports whether both tokens are present and equal, logging the
// reason when they are not.
func Validate(cookieToken, headerToken string) bool {
	if err := Check(cookieToken, headerToken); err != nil {
		log.Printf("CSRF validation failed: %v", err)
		return false
	}
	return true
}

// ValidateRequest runs Validate on the request's cookie and header.
func ValidateRequest(r *http.Request) bool {
	var cookieToken string
	if c, err := r.Cookie(CookieName); err == nil {
		cookieToken = c.Value
	}
	return Validate(cookieToken, r.Header.Get(HeaderName))
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// Options configures the middleware.
type Options struct {
	// Secure marks the cookie Secure (production deployments).
	Secure bool
	// OnError reports token generation failures.
	OnError func(format string, args ...any)
}

// Middleware answers OPTIONS requests with 204 and issues a fresh token
// cookie on every other request.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			token, err := GenerateToken()
			if err != nil {
				if opts.OnError != nil {
					opts.OnError("generating CSRF token: %v", err)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: false,
				Secure:   opts.Secure,
				SameSite: http.SameSiteStrictMode,
			})
			next.ServeHTTP(w, r)
		})
	}
}

// RequireToken rejects requests whose header token does not match the
// cookie with 403 Forbidden.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ValidateRequest(r) {
			http.Error(w, "invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
