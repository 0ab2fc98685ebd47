// Package server exposes the game engine and save store over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/store"
	"go.uber.org/zap"
)

// Narrator produces story and combat outcomes. It never fails: model
// problems are absorbed by a fallback.
type Narrator interface {
	GenerateStory(ctx context.Context, player *models.Player, genre string, history []models.StoryEvent, choice string) *models.StoryOutcome
	ResolveCombatTurn(ctx context.Context, player *models.Player, enemy *models.Enemy, action, itemID string) *models.CombatOutcome
}

// Config holds HTTP settings.
type Config struct {
	CORSOrigins []string
}

// Server holds the handler dependencies.
type Server struct {
	narrator Narrator
	saves    *store.Saves
	log      *zap.Logger
}

// New returns a Server. saves may wrap a nil repository.
func New(narrator Narrator, saves *store.Saves, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if saves == nil {
		saves = store.NewSaves(nil, log)
	}
	return &Server{narrator: narrator, saves: saves, log: log}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router(cfg Config) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(ZapLogger(s.log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"store":     s.saves.Available(),
			"timestamp": time.Now().UTC(),
		})
	}
	router.GET("/health", health)
	router.HEAD("/health", health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/story", s.handleStory)
		api.POST("/combat", s.handleCombat)
		api.POST("/save", s.handleSave)
		api.GET("/saves/:playerId", s.handleListSaves)
		api.GET("/save/:saveId", s.handleLoadSave)
		api.DELETE("/save/:saveId", s.handleDeleteSave)
	}
	return router
}
