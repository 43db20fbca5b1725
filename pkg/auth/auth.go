// Package auth implements the forward-auth verification endpoint. Tokens are
// HS256 JWTs signed with a key derived from the shared secret, carried in the
// kg_access_token cookie by the edge proxy.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the access-token cookie set at login.
const CookieName = "kg_access_token"

var errNoToken = errors.New("missing access token")

// DeriveAccessKey derives the HS256 signing key from the shared secret:
// base64 of HMAC-SHA256(secret, "access").
func DeriveAccessKey(secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("access"))
	return []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// VerifyToken parses and validates an access token, returning its claims.
func VerifyToken(token, secret string) (jwt.MapClaims, error) {
	key := DeriveAccessKey(secret)
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// VerifyHandler answers forward-auth checks: 200 when the cookie verifies,
// otherwise a 302 to the login page carrying the original URI.
func VerifyHandler(secret string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyRequest(r, secret); err != nil {
			log.Debug("auth verify failed", "error", err)
			redirectToLogin(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func verifyRequest(r *http.Request, secret string) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return errNoToken
	}
	_, err = VerifyToken(cookie.Value, secret)
	return err
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if uri := r.Header.Get("X-Forwarded-Uri"); uri != "" {
		target += "?redirect=" + url.QueryEscape(uri)
	}
	http.Redirect(w, r, target, http.StatusFound)
}
