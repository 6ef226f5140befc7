package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/middlewares"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/mmdatafocus/planning_backend/utils"
	"github.com/mmdatafocus/planning_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("planning-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

// statusForError maps the workflow's named errors onto HTTP statuses:
// bad input is 400, missing rows 404, bad timing 409. Anything unnamed is a
// 500 and the details stay in the logs, not the response body.
func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrMissingTenant):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidScenarioType),
		errors.Is(err, models.ErrInvalidScenarioParams),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrNoBomDefined),
		errors.Is(err, models.ErrNoCapacityDefined):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyCommitted),
		errors.Is(err, models.ErrOrderStateConflict),
		errors.Is(err, models.ErrScheduleNotCommitted),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *logrus.Logger, funcName string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		config.LogError(logger, "server.go", funcName, "request failed", nil, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func analyzeHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.analyze")
		defer span.End()

		var req workflow.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if len(req.OrderIds) > 0 {
			tenantId, _ := utils.GetTenantIdFromContext(ctx)
			if err := utils.ValidateResourcesId[models.ManufacturingOrder](ctx, tenantId, req.OrderIds); err != nil {
				respondError(c, logger, "analyzeHandler", err)
				return
			}
		}
		response, err := facade.Analyze(ctx, req)
		if err != nil {
			respondError(c, logger, "analyzeHandler", err)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

func commitScheduleHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	type commitRequest struct {
		ScheduleId int `json:"schedule_id" binding:"required"`
	}
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.commitSchedule")
		defer span.End()

		var req commitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		// Tenant-scoped existence check up front, before the commit lock and
		// transaction are spent on an id that is not ours.
		tenantId, _ := utils.GetTenantIdFromContext(ctx)
		if err := utils.ValidateResourceId[models.Schedule](ctx, tenantId, req.ScheduleId); err != nil {
			respondError(c, logger, "commitScheduleHandler", err)
			return
		}
		schedule, err := facade.CommitSchedule(ctx, req.ScheduleId)
		if err != nil {
			respondError(c, logger, "commitScheduleHandler", err)
			return
		}
		c.JSON(http.StatusOK, schedule)
	}
}

func materialCheckHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	type materialCheckRequest struct {
		OrderId int `json:"order_id" binding:"required"`
	}
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.materialCheck")
		defer span.End()

		var req materialCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := facade.CheckMaterials(ctx, req.OrderId)
		if err != nil {
			respondError(c, logger, "materialCheckHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func runScenarioHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.runScenario")
		defer span.End()

		var req workflow.ScenarioRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		response, err := facade.RunScenario(ctx, req)
		if err != nil {
			respondError(c, logger, "runScenarioHandler", err)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

func compareScenariosHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.compareScenarios")
		defer span.End()

		groupId := strings.TrimSpace(c.Query("group_id"))
		if groupId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group_id is required"})
			return
		}
		report, err := facade.CompareScenarios(ctx, groupId)
		if err != nil {
			respondError(c, logger, "compareScenariosHandler", err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func recordActualHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.recordActual")
		defer span.End()

		var input workflow.ActualProductionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		commitment, err := facade.RecordActual(ctx, input)
		if err != nil {
			respondError(c, logger, "recordActualHandler", err)
			return
		}
		c.JSON(http.StatusOK, commitment)
	}
}

func getVarianceHandler(facade *workflow.PlanningFacade, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "planning.getVariance")
		defer span.End()

		scheduleId, err := strconv.Atoi(c.Param("scheduleId"))
		if err != nil || scheduleId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduleId must be a positive integer"})
			return
		}
		commitments, err := facade.GetVariance(ctx, scheduleId)
		if err != nil {
			respondError(c, logger, "getVarianceHandler", err)
			return
		}
		c.JSON(http.StatusOK, commitments)
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness. Redis is optional;
		// only the database is a hard dependency.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	bus := workflow.NewEventBus(logger)
	facade := workflow.NewPlanningFacade(nil, bus, logger)

	// The facade reads DB at call time; until ConnectDatabaseWithRetry returns
	// the readiness gate above keeps requests out.
	planning := r.Group("/planning", middlewares.RequireTenant())
	{
		planning.POST("/analyze", analyzeHandler(facade, logger))
		planning.POST("/schedule/commit", commitScheduleHandler(facade, logger))
		planning.POST("/material-check", materialCheckHandler(facade, logger))
		planning.POST("/scenarios", runScenarioHandler(facade, logger))
		planning.GET("/scenarios/compare", compareScenariosHandler(facade, logger))
		planning.POST("/actuals", recordActualHandler(facade, logger))
		planning.GET("/variance/:scheduleId", getVarianceHandler(facade, logger))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	facade.DB = db
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if config.OutboxDispatcherEnabled() {
		go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)
	} else {
		logger.WithFields(logrus.Fields{"field": "outbox"}).Warn("PLANNING_OUTBOX_DISPATCHER is off; outbox rows will accumulate as PENDING")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("planning API listening on http://localhost:", port, "/planning")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
