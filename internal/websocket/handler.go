package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
	"github.com/parishhub/parish/internal/auth"
)

// HandleWebSocket upgrades authenticated admin requests and streams hub
// messages to them. originPatterns restricts browser origins; an empty list
// allows same-origin only.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := auth.Admin(r.Context())
		if !ok {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "admin_id", admin.AdminID, "error", err)
			return
		}

		logger.Debug("websocket connected", "admin_id", admin.AdminID)
		NewClient(hub, conn, admin.AdminID).Run(r.Context())
		logger.Debug("websocket disconnected", "admin_id", admin.AdminID)
	}
}

// OriginPatterns converts CORS origins such as "https://parish.example" into
// the host patterns the upgrader matches against.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		if o = strings.TrimSuffix(o, "/"); o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
