package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"
	"voicelink/internal/core/services"
	httphandlers "voicelink/internal/handlers/http"
	"voicelink/internal/infrastructure/auth"
	"voicelink/internal/infrastructure/capture"
	"voicelink/internal/infrastructure/channel"
	"voicelink/internal/infrastructure/middleware"
	"voicelink/internal/infrastructure/monitoring"
	repositories "voicelink/internal/infrastructure/repositories"
	"voicelink/internal/infrastructure/reliability"
	"voicelink/internal/infrastructure/transport"
	"voicelink/pkg/circuitbreaker"
	"voicelink/pkg/config"
	"voicelink/pkg/logger"
	"voicelink/pkg/retry"
	"voicelink/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/voicelink/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	// Initialize tracing
	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "voicelink",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	var store ports.RecordingStore = repoFactory.CreateRecordingStore()
	if cfg.Redis.Enabled {
		// The archive sits behind a breaker so a sick Redis degrades
		// recording persistence instead of blocking capture stops.
		store = reliability.NewRecordingStoreWrapper(store, circuitbreaker.DefaultConfig(), log)
	}

	// Initialize credential store and channel dialer
	tokens := auth.NewTokenStore(cfg.Auth.Token)
	dialer := channel.NewDialer(channel.DialerConfig{
		PingInterval: cfg.Channel.PingInterval,
		PongTimeout:  cfg.Channel.PongTimeout,
		WriteTimeout: cfg.Channel.WriteTimeout,
		SendRate:     cfg.Channel.SendRate,
		SendBurst:    cfg.Channel.SendBurst,
	}, tokens, log)

	// Initialize services
	catalog := services.NewMessageCatalog()

	client := services.NewSessionClient(services.SessionClientConfig{
		URL:         cfg.Session.URL,
		DialTimeout: cfg.Session.DialTimeout,
		Reconnect: retry.Config{
			Enabled:      cfg.Session.Reconnect.Enabled,
			MaxAttempts:  cfg.Session.Reconnect.MaxAttempts,
			InitialDelay: cfg.Session.Reconnect.InitialDelay,
			MaxDelay:     cfg.Session.Reconnect.MaxDelay,
			Multiplier:   cfg.Session.Reconnect.Multiplier,
			Jitter:       cfg.Session.Reconnect.Jitter,
		},
	}, dialer, tokens, catalog, log)

	roster := services.NewRosterService(func() domain.ConnectionState {
		state, _ := client.State()
		return state
	}, log)
	client.SetMessageHandler(roster.HandleMessage)

	qualityService := services.NewQualityService()
	monitor := services.NewQualityMonitor(qualityService, cfg.Monitoring.Interval, log)

	deviceProvider := capture.NewFFmpegProvider(capture.DeviceConfig{
		InputFormat: cfg.Capture.InputFormat,
		Input:       cfg.Capture.Input,
		SampleRate:  cfg.Capture.SampleRate,
		Channels:    cfg.Capture.Channels,
		ChunkSize:   cfg.Capture.ChunkSize,
	}, log)
	captureService := services.NewCaptureService(deviceProvider, store, log)

	// Initialize monitoring
	var collector *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewPrometheusCollector()
		client.AddObserver(collector)
		roster.AddObserver(collector)
		monitor.AddObserver(collector)
		captureService.SetCompletionHook(collector.RecordRecordingComplete)
	}

	// Optional outbound media leg (including STUN/TURN from config)
	var publisher *transport.AudioPublisher
	if cfg.Media.Enabled {
		var iceServers []webrtc.ICEServer
		for _, s := range cfg.Media.ICEServers {
			iceServers = append(iceServers, webrtc.ICEServer{
				URLs:       s.URLs,
				Username:   s.Username,
				Credential: s.Credential,
			})
		}
		if len(iceServers) == 0 {
			// Fallback STUN server if not configured
			iceServers = []webrtc.ICEServer{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
			}
		}

		publisher, err = transport.NewAudioPublisher("local", iceServers)
		if err != nil {
			log.Fatalw("failed to create audio publisher", "error", err)
		}
		monitor.RegisterTransport(publisher.Stats())
		monitor.RegisterTransport(publisher.RTCPStats())

		captureService.SetChunkTap(func(chunk []byte) {
			if err := publisher.WriteChunk(chunk); err != nil {
				log.Warnw("failed to publish audio chunk", "error", err)
			}
			if collector != nil {
				collector.RecordChunk(len(chunk))
			}
		})
	} else if collector != nil {
		captureService.SetChunkTap(func(chunk []byte) {
			collector.RecordChunk(len(chunk))
		})
	}

	monitor.StartMonitoring()

	// Initialize HTTP handlers
	sessionHandler := httphandlers.NewSessionHandler(client, roster, captureService, monitor, catalog, store)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Global HTTP rate limiting (if enabled)
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	sessionHandler.SetupRoutes(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		state, _ := client.State()
		c.JSON(200, gin.H{
			"status":    "healthy",
			"state":     state.String(),
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting VoiceLink control API on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down VoiceLink...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Tear down the session stack
	monitor.Cleanup()
	if err := client.Disconnect(); err != nil {
		log.Errorw("Error disconnecting session channel", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorw("Error closing audio publisher", "error", err)
		}
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}

	// Close repository factory
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("VoiceLink stopped")
}
