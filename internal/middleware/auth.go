package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"evo-store/internal/auth"
	"evo-store/internal/handler"
	"evo-store/internal/model"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// BotKeyHeader carries the shared secret of the messaging bot.
const BotKeyHeader = "X-Bot-Key"

// Verifier checks bearer tokens.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Auth guards routes with bearer tokens.
type Auth struct {
	tokens Verifier
	logger zerolog.Logger
}

// NewAuth creates the token guard.
func NewAuth(tokens Verifier, logger zerolog.Logger) *Auth {
	return &Auth{
		tokens: tokens,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Auth) RequireAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := a.tokens.Verify(bearerToken(r))
		if err != nil {
			handler.WriteError(w, model.ErrUnauthorized, a.logger)
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)), ps)
	}
}

// OptionalAuth attaches claims when a valid token is present. Requests with a
// missing or invalid token continue as guests.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if token := bearerToken(r); token != "" {
			if claims, err := a.tokens.Verify(token); err == nil {
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
		}
		next(w, r, ps)
	}
}

// RequireAdmin must run inside RequireAuth.
func (a *Auth) RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			handler.WriteError(w, model.ErrUnauthorized, a.logger)
			return
		}
		if !claims.IsAdmin() {
			a.logger.Warn().Str("user_id", claims.UserID.String()).Str("path", r.URL.Path).Msg("admin access denied")
			handler.WriteError(w, model.ErrForbidden, a.logger)
			return
		}
		next(w, r, ps)
	}
}

// BotKey validates the bot shared secret. An empty configured key rejects
// every request.
func BotKey(key string, logger zerolog.Logger) func(httprouter.Handle) httprouter.Handle {
	expected := []byte(key)
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			provided := r.Header.Get(BotKeyHeader)
			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("provided_key", provided[:min(8, len(provided))]).
					Msg("invalid bot key")
				handler.WriteError(w, model.ErrUnauthorized, logger)
				return
			}
			next(w, r, ps)
		}
	}
}
