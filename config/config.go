// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Messaging MessagingConfig
	RateLimit RateLimitConfig
	Realtime  RealtimeConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // ör: ./data/relay.db
}

// JWTConfig: token'lar dışarıda üretilir, burada sadece doğrulanır.
type JWTConfig struct {
	Secret string
}

// LogConfig, zap logger ayarları.
type LogConfig struct {
	Level       string
	Development bool
}

// MessagingConfig, mesaj yaşam döngüsü kuralları.
type MessagingConfig struct {
	EditWindow   time.Duration // gönderen bu süre içinde düzenleyebilir (varsayılan 15dk)
	DeleteWindow time.Duration // herkesten silme süresi (varsayılan 60dk)
	LockTimeout  time.Duration // aynı mesaja eşzamanlı mutasyon bekleme süresi
}

// RateLimitConfig, mesaj gönderim limiti.
type RateLimitConfig struct {
	MaxMessages int
	Window      time.Duration
	Cooldown    time.Duration
}

// RealtimeConfig, WebSocket yönlendirme ayarları.
type RealtimeConfig struct {
	GroupCacheTTL time.Duration
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler.
func Load() (*Config, error) {
	// Dosya yoksa hata vermez; production'da gerçek env variable'lar kullanılır.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv, .env yüklemeden sadece process environment'ından okur.
func FromEnv() (*Config, error) {
	port, err := getInt("SERVER_PORT", 9090)
	if err != nil {
		return nil, err
	}

	editMinutes, err := getInt("EDIT_WINDOW_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	deleteMinutes, err := getInt("DELETE_WINDOW_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	lockMs, err := getInt("LOCK_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}

	rateMax, err := getInt("MESSAGE_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	rateWindow, err := getInt("MESSAGE_RATE_WINDOW_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	rateCooldown, err := getInt("MESSAGE_RATE_COOLDOWN_SECONDS", 15)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getInt("GROUP_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	logDev, err := strconv.ParseBool(getEnv("LOG_DEV", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_DEV: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if editMinutes <= 0 || deleteMinutes <= 0 {
		return nil, fmt.Errorf("edit and delete windows must be positive")
	}
	if lockMs <= 0 {
		return nil, fmt.Errorf("invalid LOCK_TIMEOUT_MS: must be positive")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/relay.db"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: logDev,
		},
		Messaging: MessagingConfig{
			EditWindow:   time.Duration(editMinutes) * time.Minute,
			DeleteWindow: time.Duration(deleteMinutes) * time.Minute,
			LockTimeout:  time.Duration(lockMs) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			MaxMessages: rateMax,
			Window:      time.Duration(rateWindow) * time.Second,
			Cooldown:    time.Duration(rateCooldown) * time.Second,
		},
		Realtime: RealtimeConfig{
			GroupCacheTTL: time.Duration(cacheTTL) * time.Second,
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
