package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sky-gradient/internal/daytime"
	"sky-gradient/internal/session"
	"sky-gradient/internal/sky"
	"sky-gradient/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// History is the part of the gradient store the API reads from.
type History interface {
	GetSamplesWithLimit(limit int) ([]storage.GradientSample, error)
	GetSamplesByRange(from, to time.Time) ([]storage.GradientSample, error)
	GetLatestSample() (*storage.GradientSample, error)
	CountSamples() (int64, error)
}

type Server struct {
	router  *gin.Engine
	server  *http.Server
	session *session.Session
	history History
	port    int
	log     logrus.FieldLogger
}

type ServerConfig struct {
	Port        int
	Session     *session.Session
	History     History
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(corsMiddleware(cfg.CORSOrigins))

	s := &Server{
		router:  router,
		session: cfg.Session,
		history: cfg.History,
		port:    cfg.Port,
		log:     log,
	}

	s.setupRoutes(newLimiter(cfg.RateLimit, cfg.RateBurst))
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(limiter *rate.Limiter) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	s.router.SetHTMLTemplate(tmpl)

	s.router.GET("/", s.indexHandler)
	s.router.HEAD("/", s.indexHandler)
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/timings", s.timingsHandler)
		api.GET("/keyframes", s.keyframesHandler)
		api.GET("/gradient", s.gradientHandler)
		api.GET("/session", s.sessionHandler)
		api.GET("/history", s.historyHandler)
		api.GET("/history/latest", s.latestSampleHandler)

		mutating := api.Group("/session")
		mutating.Use(rateLimitMiddleware(limiter))
		{
			mutating.PUT("/time", s.setTimeHandler)
			mutating.POST("/step", s.stepHandler)
		}
	}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	s.log.WithField("port", s.port).Info("API server starting")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) indexHandler(c *gin.Context) {
	state := s.session.State()
	css := ""
	if state.Gradient != nil {
		css = state.Gradient.CSS()
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":   "Sky Gradient",
		"minutes": int(state.Minutes),
		"clock":   state.Clock,
		"max":     daytime.MinutesPerDay - 1,
		"css":     template.CSS(css),
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timings":   s.session.Timings() != nil,
		"blend":     s.session.Engine().Mode(),
		"history":   s.history != nil,
		"timestamp": time.Now(),
	}
	if s.history != nil {
		if n, err := s.history.CountSamples(); err == nil {
			body["samples"] = n
		} else {
			s.log.WithError(err).Warn("Failed to count samples")
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) timingsHandler(c *gin.Context) {
	timings := s.session.Timings()
	if timings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": sky.ErrTimingsUnavailable.Error()})
		return
	}
	c.JSON(http.StatusOK, timings)
}

func (s *Server) keyframesHandler(c *gin.Context) {
	timings := s.session.Timings()
	if timings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": sky.ErrTimingsUnavailable.Error()})
		return
	}
	kf := sky.BuildKeyframes(timings)
	c.JSON(http.StatusOK, gin.H{
		"keyframes": kf,
		"monotonic": kf.Monotonic(),
	})
}

func (s *Server) gradientHandler(c *gin.Context) {
	raw := c.Query("time")
	var m daytime.Minutes
	if raw == "" {
		m = s.session.State().Minutes
	} else {
		var err error
		m, err = daytime.ParseClock(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	g, err := s.session.Preview(m)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) sessionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.State())
}

type setTimeRequest struct {
	Minutes *int `json:"minutes" binding:"required"`
}

func (s *Server) setTimeHandler(c *gin.Context) {
	var req setTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := s.session.SetTime(c.Request.Context(), *req.Minutes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type stepRequest struct {
	Key       string `json:"key"`
	Direction string `json:"direction"`
}

func (s *Server) stepHandler(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dir session.Direction
	switch {
	case req.Key != "":
		dir = session.KeyDirection(req.Key)
	case req.Direction != "":
		switch strings.ToLower(req.Direction) {
		case "forward":
			dir = session.Forward
		case "backward":
			dir = session.Backward
		}
	}
	if dir == session.None {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key or direction must be an arrow key, forward or backward"})
		return
	}

	g, err := s.session.Step(c.Request.Context(), dir)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) historyHandler(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store is disabled"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr != "" || toStr != "" {
		if fromStr == "" || toStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'from' and 'to' must be given together"})
			return
		}
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' date format"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' date format"})
			return
		}

		samples, err := s.history.GetSamplesByRange(from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, samples)
		return
	}

	samples, err := s.history.GetSamplesWithLimit(historyLimit(c.Query("limit")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, samples)
}

// historyLimit falls back to the default for missing or unusable values and
// caps large ones.
func historyLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func (s *Server) latestSampleHandler(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store is disabled"})
		return
	}

	sample, err := s.history.GetLatestSample()
	if errors.Is(err, storage.ErrNoSamples) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sky.ErrTimingsUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, sky.ErrOutOfRange), errors.Is(err, daytime.ErrInvalidClock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
