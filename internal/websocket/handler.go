package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/billfold/internal/auth"
)

// Handler upgrades an authenticated request and attaches the connection to
// the caller's channel on the hub.
func Handler(hub *Hub, origins []string, logger *slog.Logger) http.HandlerFunc {
	opts := &ws.AcceptOptions{OriginPatterns: origins}
	for _, o := range origins {
		if o == "*" {
			opts = &ws.AcceptOptions{InsecureSkipVerify: true}
			break
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		NewClient(hub, conn, userID).Run(r.Context())
	}
}
