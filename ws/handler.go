package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/relay/models"
)

// TokenValidator, WebSocket handler'ın access token doğrulaması için kullandığı interface.
// ws → services bağımlılığını önlemek için burada tanımlanır; services.AuthService karşılar.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// UserProvisioner, bağlanan kimliğin kullanıcı kaydını garanti eder.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, userID, username string) error
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	users          UserProvisioner
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

// NewHandler, yeni bir WebSocket handler oluşturur. allowedOrigins boş veya
// "*" içeriyorsa tüm origin'lere izin verilir.
func NewHandler(hub *Hub, tokenValidator TokenValidator, users UserProvisioner, allowedOrigins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		users:          users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("ws"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// HandleConnection, token'ı doğrular, bağlantıyı WebSocket'e yükseltir ve Hub'a kaydeder.
//
// Tarayıcılar WS isteğine header ekleyemediği için token query parametresinde gelir:
//
//	ws://server/ws?token=JWT_TOKEN
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if h.users != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		err := h.users.EnsureUser(ctx, claims.UserID, claims.Username)
		cancel()
		if err != nil {
			h.log.Error("failed to provision user", zap.String("user_id", claims.UserID), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	// ReadPump bağlantı kapanana kadar bu goroutine'i bloklar.
	go client.WritePump()
	client.ReadPump()
}
