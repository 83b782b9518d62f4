package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Default values - actual values are loaded from configuration
	defaultJWTSecret       = "fallback_secret_change_in_production"
	defaultTokenExpiration = 24 * time.Hour

	tokenIssuer = "c64basic"

	// SessionCookie carries the token for browsers.
	SessionCookie = "session_token"
)

var (
	ErrNoToken      = errors.New("no token found in request")
	ErrInvalidToken = errors.New("invalid token")
)

// getJWTSecret retrieves the JWT secret from environment variable or configuration
func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}
	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" {
		logger.SecurityWarn("Using fallback JWT secret - set JWT_SECRET_KEY environment variable for production!")
		return defaultJWTSecret
	}
	return secret
}

// getTokenExpiration retrieves the token expiration duration from configuration
func getTokenExpiration() time.Duration {
	hours := configuration.GetInt("JWT", "token_expiration_hours", 0)
	if hours <= 0 {
		return defaultTokenExpiration
	}
	return time.Duration(hours) * time.Hour
}

// SessionClaims are the claims of a terminal session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for sessionID (HS256).
func GenerateSessionToken(sessionID, name string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenExpiration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   name,
			ID:        sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", fmt.Errorf("token konnte nicht signiert werden: %w", err)
	}
	logger.AuthDebug("Session token generated for %s (%s)", sessionID, name)
	return signed, nil
}

// ValidateSessionToken checks signature, algorithm, issuer and expiry.
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(getJWTSecret()), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractTokenFromRequest reads the token from the Authorization header
// (Bearer), the session cookie or the token query parameter, in that order.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], nil
		}
		return "", fmt.Errorf("invalid authorization header format")
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

// RequireSessionToken ist ein Middleware für HTTP-Handler, die einen gültigen Session-Token erfordert
func RequireSessionToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// OPTIONS-Anfrage für CORS-Preflight erlauben ohne Token-Überprüfung
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("Kein Token im Request gefunden: %v", err)
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}
		claims, err := ValidateSessionToken(tokenString)
		if err != nil {
			logger.AuthWarn("Ungültiger Token von %s: %v", getClientIP(r), err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(AddClaimsToContext(r.Context(), claims)))
	}
}
