// Package main: WebSocket Hub callback wire-up.
//
// registerHubCallbacks, Hub'ın presence ve typing callback'lerini ayarlar.
//
// Hub ws paketinde yaşıyor, typing kuralları (blok, üyelik) service katmanında.
// Hub'ın service'lere bağımlı olmasını istemiyoruz; main package wire-up
// noktasıdır, tüm katmanları birbirine bağlar.
package main

import (
	"go.uber.org/zap"

	"github.com/akinalp/relay/services"
	"github.com/akinalp/relay/ws"
)

// registerHubCallbacks, tüm Hub callback'lerini register eder.
//
// - typingService: client'tan gelen typing event'lerini doğrular ve tracker'a yazar
// - tracker: kullanıcı tamamen çıkınca bıraktığı typing state'i temizlenir
func registerHubCallbacks(
	hub *ws.Hub,
	typingService services.TypingService,
	tracker *ws.TypingTracker,
	log *zap.Logger,
) {
	log = log.Named("presence")

	// ─── Presence Callback'leri ───
	// Online/offline yayınını Hub kendisi yapar; burada sadece yan etkiler var.

	hub.OnUserFirstConnect(func(userID string) {
		log.Info("user is now online", zap.String("user_id", userID))
	})

	hub.OnUserFullyDisconnected(func(userID string) {
		tracker.ClearAllFrom(userID)
		log.Info("user is now offline", zap.String("user_id", userID))
	})

	// ─── Typing ───
	hub.OnTyping(typingService.HandleTyping)
}
