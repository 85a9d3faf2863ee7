// Package api exposes the launch workflow over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rovshanmuradov/pumpbot/internal/launch"
	"github.com/rovshanmuradov/pumpbot/internal/metadata"
	"github.com/rovshanmuradov/pumpbot/internal/metrics"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/social"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/rovshanmuradov/pumpbot/internal/upload"
	"go.uber.org/zap"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	PublicURL       string
	Debug           bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// MaxImageBytes sizes the body limit of the upload routes.
	MaxImageBytes int64
}

const (
	defaultMaxImageBytes = 1 << 20
	// multipart boundaries, form fields and base64 overhead
	uploadEnvelopeBytes = 64 << 10
	jsonBodyLimit       = 1 << 20
)

// uploadBodyLimit leaves room for a data URI, which is a third larger than
// the image it carries.
func (cfg Config) uploadBodyLimit() int64 {
	image := cfg.MaxImageBytes
	if image <= 0 {
		image = defaultMaxImageBytes
	}
	return 2*image + uploadEnvelopeBytes
}

type MetadataService interface {
	Put(ctx context.Context, m metadata.Metadata, baseURL string) (*metadata.Stored, error)
	GetRaw(ctx context.Context, id string) ([]byte, error)
}

type ImageService interface {
	Store(ctx context.Context, f upload.File, baseURL string) (*upload.Image, error)
	Resolve(ctx context.Context, ref, baseURL string) (*upload.Image, error)
	Dir() string
}

type LaunchPreparer interface {
	Prepare(ctx context.Context, req launch.PrepareRequest, baseURL string) (*launch.UnsignedLaunch, error)
}

type LaunchConfirmer interface {
	Confirm(ctx context.Context, req launch.ConfirmRequest) (*launch.Confirmation, error)
}

type LaunchRegistry interface {
	List(ctx context.Context, q registry.Query) (*registry.Page, error)
	Get(ctx context.Context, address string) (*models.TokenLaunch, error)
	Recent(ctx context.Context, limit int) ([]models.RecentLaunch, error)
	Ping(ctx context.Context) error
}

type SocialLauncher interface {
	Launch(ctx context.Context, req social.LaunchRequest) (*social.LaunchResult, error)
}

// Deps are the services the handlers call. Live and Metrics are optional.
type Deps struct {
	Metadata  MetadataService
	Images    ImageService
	Preparer  LaunchPreparer
	Confirmer LaunchConfirmer
	Registry  LaunchRegistry
	Social    SocialLauncher
	Live      http.Handler
	Metrics   *metrics.Collector
}

// Server wraps the gin router and the HTTP server.
type Server struct {
	cfg        Config
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
}

// New builds the router. It does not start listening.
func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("api"),
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.cfg.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 2 << 20

	router.Use(RequestID())
	router.Use(Recovery(s.logger, s.cfg.Debug))
	router.Use(Logger(s.logger))
	router.Use(SetupCORS(s.cfg.CORSOrigins))
	if s.deps.Metrics != nil {
		router.Use(Metrics(s.deps.Metrics))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})

	router.Static("/uploads", s.deps.Images.Dir())
	router.GET("/metadata/:file", s.getMetadata("file"))

	if s.deps.Live != nil {
		router.GET("/ws", gin.WrapH(s.deps.Live))
	}
	if s.deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	uploadLimit := BodyLimit(s.cfg.uploadBodyLimit())
	jsonLimit := BodyLimit(jsonBodyLimit)

	api := router.Group("/api")
	{
		api.GET("/health", s.health)

		api.POST("/images", uploadLimit, s.uploadImage)
		api.POST("/upload-image", uploadLimit, s.uploadImage)
		api.POST("/upload", uploadLimit, s.uploadLegacy)

		api.POST("/metadata", jsonLimit, s.storeMetadata)
		api.POST("/store-metadata", jsonLimit, s.storeMetadata)
		api.GET("/metadata/:id", s.getMetadata("id"))
		api.GET("/store-metadata/:id", s.getMetadata("id"))

		api.POST("/launch/prepare", jsonLimit, s.prepareLaunch)
		api.POST("/prepare-launch", jsonLimit, s.prepareLaunch)
		api.POST("/launch/confirm", jsonLimit, s.confirmLaunch)
		api.POST("/confirm-launch", jsonLimit, s.confirmLaunch)

		api.GET("/launches", s.recentLaunches)
		api.GET("/tokens", s.listTokens)
		api.GET("/tokens/:address", s.getToken)

		if s.deps.Social != nil {
			api.POST("/launch", jsonLimit, s.socialLaunch)
		}
	}

	return router
}
