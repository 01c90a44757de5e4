// Package main, relay mesajlaşma sunucusunun giriş noktasıdır.
//
// Bu dosyanın görevi, Dependency Injection "wire-up":
//
//  1. Config'i yükle
//  2. Logger ve metrics registry'yi kur
//  3. Database'i başlat (migration'lar dahil)
//  4. Repository'leri oluştur
//  5. WebSocket Hub, Router ve TypingTracker'ı kur
//  6. Service'leri oluştur
//  7. Hub callback'lerini bağla
//  8. Handler'ları oluştur
//  9. HTTP router'ı kur, route'ları bağla
//  10. CORS yapılandır
//  11. HTTP Server'ı başlat
//  12. Graceful shutdown
//
// Global değişken YOK, her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akinalp/relay/config"
	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/pkg/logger"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/ws"
)

func main() {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] failed to load config: %v\n", err)
		os.Exit(1)
	}

	// ─── 2. Logger + Metrics ───
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("relay server starting", zap.Int("port", cfg.Server.Port))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// ─── 3. Database ───
	db, err := database.New(cfg.Database.Path, database.Migrations(), log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// ─── 4. Repositories ───
	repos := initRepositories(db.Conn)

	// ─── 5. Realtime ───
	// Router grup üyelerini repository'den çözer ve kısa süre cache'ler.
	// TypingTracker event'lerini Router üzerinden yayınlar.
	hub := ws.NewHub(log, m)
	router := ws.NewRouter(hub, repos.Group, cfg.Realtime.GroupCacheTTL, log)
	tracker := ws.NewTypingTracker(router, log)

	// ─── 6. Services ───
	svcs, limiters := initServices(db.Conn, repos, router, tracker, cfg, log)

	// ─── 7. Hub Callbacks ───
	registerHubCallbacks(hub, svcs.Typing, tracker, log)

	// ─── 8. Handlers ───
	h := initHandlers(svcs, limiters, hub, m, cfg, log)

	// ─── 9. HTTP Router ───
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs, registry, log)

	// ─── 10. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})

	// ─── 11. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 12. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	log.Info("shutting down")

	// Önce WebSocket bağlantılarını kapat, sonra HTTP server yeni request
	// kabul etmeyi bırakır ve mevcut request'lerin bitmesini bekler (5sn).
	hub.Shutdown()
	router.Close()
	limiters.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return
	}

	log.Info("server stopped gracefully")
}
