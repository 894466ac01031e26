package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

const (
	// SessionTokenHeader carries a freshly minted token back to the client.
	SessionTokenHeader = "X-Session-Token"
	SessionCookieName  = "chat_session"
)

var ErrInvalidSession = errors.New("invalid session token")

type SessionAuth struct {
	Secret []byte
	TTL    time.Duration
}

func NewSessionAuth(secret string, ttl time.Duration) *SessionAuth {
	return &SessionAuth{Secret: []byte(secret), TTL: ttl}
}

// Issue mints a new session id and a signed token for it.
func (s *SessionAuth) Issue() (sessionID, token string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(s.TTL)
	sessionID = uuid.New().String()

	claims := jwt.MapClaims{
		"session_id": sessionID,
		"exp":        expiresAt.Unix(),
		"iat":        now.Unix(),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return sessionID, token, expiresAt, nil
}

// Parse verifies a token and returns its session id.
func (s *SessionAuth) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}

	idStr, ok := claims["session_id"].(string)
	if !ok {
		return "", ErrInvalidSession
	}
	if _, err := uuid.Parse(idStr); err != nil {
		return "", ErrInvalidSession
	}
	return idStr, nil
}

// Middleware resolves the caller's session and attaches its id to the context.
// A request with no token gets a new session; a bad token is rejected.
func (s *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, fromCookie, err := tokenFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid session token")
			return
		}

		var sessionID string
		switch {
		case tokenStr != "":
			sessionID, err = s.Parse(tokenStr)
			if err != nil && fromCookie {
				// stale cookie, start over
				sessionID, err = s.mint(w)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "Failed to create session")
					return
				}
				break
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid session token")
				return
			}
		default:
			sessionID, err = s.mint(w)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to create session")
				return
			}
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *SessionAuth) mint(w http.ResponseWriter) (string, error) {
	sessionID, token, expiresAt, err := s.Issue()
	if err != nil {
		return "", err
	}
	s.SetCookie(w, token, expiresAt)
	w.Header().Set(SessionTokenHeader, token)
	return sessionID, nil
}

// SetCookie stores the token for browsers that never read the header.
func (s *SessionAuth) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// tokenFromRequest checks the Authorization header, then ?token=, then the cookie.
func tokenFromRequest(r *http.Request) (token string, fromCookie bool, err error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return "", false, ErrInvalidSession
		}
		return strings.TrimSpace(parts[1]), false, nil
	}

	if t := r.URL.Query().Get("token"); t != "" {
		return t, false, nil
	}

	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true, nil
	}
	return "", false, nil
}

// GetSessionID extracts the session id from request context
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
