// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Her handler, ihtiyaç duyduğu service interface'lerini constructor'dan alır.
package main

import (
	"go.uber.org/zap"

	"github.com/akinalp/relay/config"
	"github.com/akinalp/relay/handlers"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Health       *handlers.HealthHandler
	Conversation *handlers.ConversationHandler
	DM           *handlers.DirectMessageHandler
	Group        *handlers.GroupHandler
	GroupMessage *handlers.GroupMessageHandler
	Relation     *handlers.RelationHandler
	WS           *ws.Handler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(
	svcs *Services,
	limiters *RateLimiters,
	hub *ws.Hub,
	m *metrics.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) *Handlers {
	return &Handlers{
		Health:       handlers.NewHealthHandler(hub),
		Conversation: handlers.NewConversationHandler(svcs.Conversation, m),
		DM:           handlers.NewDirectMessageHandler(svcs.DM, svcs.GroupMessage, limiters.Message, m),
		Group:        handlers.NewGroupHandler(svcs.Group, m),
		GroupMessage: handlers.NewGroupMessageHandler(svcs.GroupMessage, limiters.Message, m),
		Relation:     handlers.NewRelationHandler(svcs.User, m),
		WS:           ws.NewHandler(hub, svcs.Auth, svcs.User, cfg.Server.CORSOrigins, log),
	}
}
