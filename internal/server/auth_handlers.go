package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/satish1373/ag-devops/internal/service"
)

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CredentialsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to register user")
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CredentialsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	token, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to log in")
		return
	}
	respondWithJSON(w, http.StatusOK, token)
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	id, claims, err := s.auth.VerifyToken(token)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to verify token")
		return
	}
	resp := map[string]any{
		"valid":   true,
		"user_id": id,
		"email":   claims.Email,
	}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// authenticate scopes the request to the token's user. Requests without a
// token continue anonymously unless auth is required; a bad token is always
// rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if s.cfg.Auth.Required {
				respondWithError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		id, _, err := s.auth.VerifyToken(token)
		if err != nil {
			s.respondWithServiceError(w, r, err, "Failed to verify token")
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithUserID(r.Context(), id)))
	})
}

// bearerToken reads the Authorization header, falling back to a token query
// parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
