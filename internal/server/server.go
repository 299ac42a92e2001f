// Package server exposes the triage pipeline and its supporting services
// over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/skintriage/internal/consultation"
	"github.com/Skufu/skintriage/internal/hospitals"
	"github.com/Skufu/skintriage/internal/imagestore"
	"github.com/Skufu/skintriage/internal/store"
	"github.com/Skufu/skintriage/internal/triage"
)

const version = "1.0.0"

// multipartOverhead is added to the image size limit to leave room for the
// other form fields.
const multipartOverhead = 1 << 20

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	UploadRPS      float64
	UploadBurst    int
	// UploadDir is served under /uploads when images are stored locally.
	UploadDir string
}

// Server holds the collaborators the handlers need. DB and Hospitals may be
// nil; Generator is nil when no Gemini key is configured.
type Server struct {
	DB        HealthChecker
	Pipeline  *triage.Pipeline
	Questions *triage.QuestionGenerator
	Selector  *triage.StaticSelector
	Generator triage.TextGenerator
	Images    imagestore.Store
	Records   store.RecordRepository
	Users     store.UserRepository
	Hospitals hospitals.Finder
	Scheduler *consultation.Scheduler
	Logger    zerolog.Logger
	Options   Options
}

func (s *Server) aiEnabled() bool {
	return s.Generator != nil
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	opts := s.Options
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s.Options = opts
	if s.Scheduler == nil {
		s.Scheduler = consultation.NewScheduler()
	}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(s.Logger),
		recovery(s.Logger),
		limitBodySize(opts.MaxUploadBytes+multipartOverhead),
		cors.New(cors.Config{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	if opts.UploadDir != "" {
		router.Static(imagestore.URLPrefix, opts.UploadDir)
	}

	router.GET("/", s.index)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.readyz)

	api := router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/ai-status", s.aiStatus)
	api.GET("/ai-models", s.aiModels)

	diag := api.Group("/diagnosis")
	diag.POST("/upload", uploadLimiter(opts.UploadRPS, opts.UploadBurst), s.uploadAndDiagnose)
	diag.POST("/questions", s.followUpQuestions)
	diag.GET("/history/:userId", s.diagnosisHistory)
	diag.GET("/:id", s.getDiagnosis)
	diag.PATCH("/:id/review", s.reviewDiagnosis)

	hosp := api.Group("/hospitals")
	hosp.GET("/nearby", s.nearbyHospitals)
	hosp.GET("/details/:placeId", s.hospitalDetails)

	cons := api.Group("/consultation")
	cons.POST("/schedule", s.scheduleConsultation)
	cons.GET("/available-doctors", s.availableDoctors)

	return router
}

func (s *Server) readyz(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.DB.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":         "Skin Diagnosis API is running",
		"version":         version,
		"aiEnabled":       s.aiEnabled(),
		"availableModels": s.Selector.IDs(),
		"endpoints": gin.H{
			"diagnosis":    "POST /api/diagnosis/upload",
			"questions":    "POST /api/diagnosis/questions",
			"history":      "GET /api/diagnosis/history/:userId",
			"aiStatus":     "GET /api/ai-status",
			"aiModels":     "GET /api/ai-models",
			"hospitals":    "GET /api/hospitals/nearby",
			"consultation": "POST /api/consultation/schedule",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "OK",
		"message":         "Skin Diagnosis API is running",
		"aiEnabled":       s.aiEnabled(),
		"availableModels": len(s.Selector.IDs()),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
