package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/c64basic/pkg/logger"
	"github.com/google/uuid"
	"github.com/goombaio/namegenerator"
)

// SessionRegistrar accepts a freshly created session. Returning an error
// rejects the session (e.g. session limit reached).
type SessionRegistrar func(sessionID, name string) error

// SessionResponse definiert die Struktur für Session-Antworten
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message,omitempty"`
}

var (
	namesMu sync.Mutex
	names   = namegenerator.NewNameGenerator(time.Now().UTC().UnixNano())
)

// newSessionIdentity returns a uuid session id and a readable name.
func newSessionIdentity() (string, string) {
	namesMu.Lock()
	name := names.Generate()
	namesMu.Unlock()
	return uuid.NewString(), name
}

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")
}

// HandleCreateSession returns the POST /api/session handler. register may be nil.
func HandleCreateSession(register SessionRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w, "POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			logger.AuthWarn("Invalid method for session creation: %s", r.Method)
			respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		clientIP := getClientIP(r)
		sessionID, name := newSessionIdentity()
		if register != nil {
			if err := register(sessionID, name); err != nil {
				logger.AuthWarn("Session rejected for %s: %v", clientIP, err)
				respondWithError(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}

		token, err := GenerateSessionToken(sessionID, name)
		if err != nil {
			logger.AuthError("Failed to generate token for session %s: %v", sessionID, err)
			respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		// Cookie setzen für automatische Übertragung
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   int(getTokenExpiration().Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		logger.AuthInfo("New session %s (%s) for IP: %s", sessionID, name, clientIP)
		json.NewEncoder(w).Encode(SessionResponse{
			Success:   true,
			SessionID: sessionID,
			Name:      name,
			Token:     token,
		})
	}
}

// HandleTokenValidation answers whether the request carries a valid token.
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		respondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}
	claims, err := ValidateSessionToken(tokenString)
	if err != nil {
		logger.AuthWarn("Token validation failed: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		SessionID: claims.SessionID,
		Name:      claims.Name,
	})
}

// HandleLogout löscht das Session-Cookie
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	json.NewEncoder(w).Encode(SessionResponse{Success: true, Message: "Logout successful"})
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// respondWithError sendet eine Fehlerantwort als JSON
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SessionResponse{
		Success: false,
		Message: message,
	})
}
