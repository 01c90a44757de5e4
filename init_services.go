// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// Sıralama: Router ve TypingTracker service'lerden ÖNCE kurulur (bkz. main.go),
// Lifecycle tüm mesaj servisleri arasında paylaşılır; mesaj kilitleri tek yerde tutulur.
package main

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/akinalp/relay/config"
	"github.com/akinalp/relay/pkg/ratelimit"
	"github.com/akinalp/relay/services"
	"github.com/akinalp/relay/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth         services.AuthService
	User         services.UserService
	DM           services.DirectMessageService
	Group        services.GroupService
	GroupMessage services.GroupMessageService
	Conversation services.ConversationService
	Typing       services.TypingService
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	Message *ratelimit.SendLimiter
}

// Stop, limiter'ların arka plan goroutine'lerini durdurur.
func (l *RateLimiters) Stop() {
	l.Message.Stop()
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
func initServices(
	db *sql.DB,
	repos *Repositories,
	pub ws.Publisher,
	tracker *ws.TypingTracker,
	cfg *config.Config,
	log *zap.Logger,
) (*Services, *RateLimiters) {
	lc := services.NewLifecycle(services.Rules{
		EditWindow:   cfg.Messaging.EditWindow,
		DeleteWindow: cfg.Messaging.DeleteWindow,
		LockTimeout:  cfg.Messaging.LockTimeout,
	})

	svcs := &Services{
		Auth:         services.NewAuthService(cfg.JWT.Secret),
		User:         services.NewUserService(repos.User, repos.Relation, log),
		DM:           services.NewDirectMessageService(db, repos.Message, repos.User, repos.Relation, lc, pub, tracker, log),
		Group:        services.NewGroupService(db, repos.Group, repos.User, lc, pub, tracker, log),
		GroupMessage: services.NewGroupMessageService(db, repos.GroupMessage, repos.Group, lc, pub, tracker, log),
		Conversation: services.NewConversationService(repos.Message, repos.GroupMessage, repos.Group, repos.Relation, pub),
		Typing:       services.NewTypingService(tracker, repos.User, repos.Relation, repos.Group),
	}

	limiters := &RateLimiters{
		Message: ratelimit.NewSendLimiter(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window, cfg.RateLimit.Cooldown),
	}

	return svcs, limiters
}
