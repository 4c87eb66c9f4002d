package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/satish1373/ag-devops/internal/service"
)

// wsHandler upgrades to a websocket that receives the caller's todo events
// and every automation event.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondWithError(w, http.StatusServiceUnavailable, "event stream is not enabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := service.UserIDFromContext(r.Context())
	if !s.hub.Attach(conn, userID) {
		s.log.Warn("websocket rejected, hub stopped")
	}
}
