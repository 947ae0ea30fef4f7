package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lg/mealmind-go-api/internal/logger"
	"lg/mealmind-go-api/internal/mealplan"
)

// Handler holds shared dependencies (store, generator, config) for all route handlers.
type Handler struct {
	store        store
	log          *logger.Logger
	gen          *generator
	locks        slotLocker
	jwtSecret    []byte
	jwtTTL       time.Duration
	dietDuration int
	now          func() time.Time // overridable for tests
	loc          *time.Location
}

// today is the current calendar date in the configured timezone.
func (h *Handler) today() mealplan.Date {
	return mealplan.Today(h.now(), h.loc)
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	apiErrorCode(c, status, "", message)
}

// apiErrorCode is apiError with a machine-readable code clients can branch on.
func apiErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, mealplan.ErrorBody{Error: message, Code: code, RequestID: c.GetString("request_id")})
}

// storeError writes the response for a failed store call. Missing rows are
// 404 with notFound as the message; anything else is a logged 500.
func (h *Handler) storeError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, mealplan.ErrNotFound) {
		apiError(c, http.StatusNotFound, notFound)
		return
	}
	h.log.Error(failed, "error", err, "request_id", c.GetString("request_id"), "user_id", c.GetInt("user_id"))
	apiError(c, http.StatusInternalServerError, failed)
}

/* ─── Middleware ─────────────────────────────────────────────────────── */

// requestLogger tags each request with an id (echoing X-Request-ID when the
// caller sent one) and logs it once it completes.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = mealplan.NewRequestID()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", id,
		}
		if uid, ok := c.Get("user_id"); ok {
			fields = append(fields, "user_id", uid)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

/* ─── Routes ─────────────────────────────────────────────────────────── */

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/api/auth/signup", h.signup)
	router.POST("/api/auth/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/auth/me", h.me)

	api.POST("/profile/setup", h.setupProfile)
	api.GET("/profile/get", h.getProfile)
	api.PUT("/profile/update", h.updateProfile)
	api.POST("/profile/reset", h.resetProfile)

	rec := api.Group("/recommendations")
	rec.GET("/today", h.getToday)
	rec.GET("/day/:date", h.getDay)
	rec.POST("/generate_for_date", h.generateForDate)
	rec.POST("/generate_month_ahead", h.generateMonthAhead)
	rec.POST("/regenerate/:slot", h.regenerate)
	rec.POST("/checkin", h.checkin)
	rec.GET("/month/:year/:month", h.getMonth)
	rec.GET("/history", h.getHistory)

	prog := api.Group("/progress")
	prog.POST("/weight/record", h.recordWeight)
	prog.GET("/weight", h.getWeightLog)
	prog.GET("/adherence", h.getAdherence)
	prog.GET("/stats", h.getStats)
}
