package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
	"github.com/dmachibya/faithexercises-api/progress"
)

const (
	upcomingReflectionDays = 7
	healthTimeout          = 2 * time.Second
	metricsSubsystem       = "faithexercises"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{Location: deps.Location}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	e.JSONSerializer = SonicSerializer{}
	e.Use(GzipRequestMiddleware())

	registry := prometheus.NewRegistry()
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: registry,
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))
	e.GET("/healthz", healthz(deps.Health))

	logger := deps.Logger
	e.GET("/api/exercises", listExercises(deps.Catalog, deps.Auth, logger))
	e.GET("/api/exercises/:id", getExercise(deps.Catalog, deps.Auth, logger))
	e.GET("/api/exercises/:id/tasks", listExerciseTasks(deps.Catalog, deps.Auth, logger))
	e.GET("/api/exercises/:id/streak", exerciseStreak(deps.Catalog, deps.Progress, deps.Auth, logger))
	e.GET("/api/streak", tasksStreak(deps.Progress, deps.Auth, logger))
	e.POST("/api/tasks/:id/progress", toggleProgress(deps.Progress, deps.Auth, deps.Location, logger))
	e.GET("/api/tasks/:id/progress", showProgress(deps.Progress, deps.Auth, deps.Location, logger))
	e.GET("/api/reflections", upcomingReflections(deps.Reflections, deps.Auth, deps.Clock, logger))
	e.GET("/api/notifications/:id", getNotification(deps.Notifications, deps.Auth, logger))
	e.GET("/api/journal", listJournal(deps.Journal, deps.Auth, deps.Location, logger))
	e.POST("/api/journal", createJournal(deps.Journal, deps.Auth, deps.Location, logger))
	e.PUT("/api/journal/:id", updateJournal(deps.Journal, deps.Auth, deps.Location, logger))
	e.DELETE("/api/journal/:id", deleteJournal(deps.Journal, deps.Auth, logger))
	e.GET("/api/identities", listIdentities(deps.Identities, deps.Auth, logger))
	e.POST("/api/identities", createIdentity(deps.Identities, deps.Auth, logger))
	e.PUT("/api/identities/:id", updateIdentity(deps.Identities, deps.Auth, logger))
	e.DELETE("/api/identities/:id", deleteIdentity(deps.Identities, deps.Auth, logger))

	registerAdmin(e.Group("/admin", RequireAdmin(deps.Auth)), deps)
}

func healthz(checks []Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		for _, p := range checks {
			if err := p.Ping(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func listExercises(catalog Catalog, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return unauthorized(c, err)
		}
		exercises, err := catalog.ListExercises(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, exercises)
	}
}

func getExercise(catalog Catalog, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid exercise id")
		}
		exercise, err := catalog.GetExercise(c.Request().Context(), id)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, exercise)
	}
}

func listExerciseTasks(catalog Catalog, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid exercise id")
		}
		ctx := c.Request().Context()
		if _, err := catalog.GetExercise(ctx, id); err != nil {
			return writeError(c, logger, err)
		}
		tasks, err := catalog.ListActiveTasks(ctx, id)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

type streakResponse struct {
	Streak  int     `json:"streak"`
	TaskIDs []int64 `json:"task_ids"`
}

func exerciseStreak(catalog Catalog, ledger ProgressService, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newProgressRequestMetrics(ctx, logger, "/api/exercises/:id/streak")
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		p, authErr := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return unauthorized(c, authErr)
		}
		id, ok := pathID(c)
		if !ok {
			metrics.SetErrorStage("invalid_id")
			return badRequest(c, "invalid exercise id")
		}
		if _, lookupErr := catalog.GetExercise(ctx, id); lookupErr != nil {
			metrics.SetErrorStage("lookup")
			return writeError(c, logger, lookupErr)
		}
		tasks, lookupErr := catalog.ListActiveTasks(ctx, id)
		if lookupErr != nil {
			metrics.SetErrorStage("lookup")
			return writeError(c, logger, lookupErr)
		}
		ids := make([]int64, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		metrics.SetTaskCount(len(ids))

		ledgerStart := time.Now()
		streak, ledgerErr := ledger.Streak(ctx, p.UserID, ids)
		metrics.ObserveLedger(time.Since(ledgerStart))
		if ledgerErr != nil {
			metrics.SetErrorStage("ledger")
			return writeError(c, logger, ledgerErr)
		}
		metrics.SetStreak(streak)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, streakResponse{Streak: streak, TaskIDs: ids})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

// parseTaskIDs reads a comma separated list of positive ids.
func parseTaskIDs(raw string) ([]int64, bool) {
	ids := make([]int64, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func tasksStreak(ledger ProgressService, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newProgressRequestMetrics(ctx, logger, "/api/streak")
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		p, authErr := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return unauthorized(c, authErr)
		}
		ids, ok := parseTaskIDs(c.QueryParam("taskIds"))
		if !ok {
			metrics.SetErrorStage("invalid_task_ids")
			return badRequest(c, "invalid taskIds")
		}
		metrics.SetTaskCount(len(ids))

		ledgerStart := time.Now()
		streak, ledgerErr := ledger.Streak(ctx, p.UserID, ids)
		metrics.ObserveLedger(time.Since(ledgerStart))
		if ledgerErr != nil {
			metrics.SetErrorStage("ledger")
			return writeError(c, logger, ledgerErr)
		}
		metrics.SetStreak(streak)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, streakResponse{Streak: streak, TaskIDs: ids})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type progressRequest struct {
	Period string `json:"period"`
	Date   string `json:"date"`
}

// parseProgressRequest validates the period and optional date of a progress
// call.
func parseProgressRequest(req progressRequest, loc *time.Location) (domain.Period, *domain.Date, error) {
	period, err := domain.ParsePeriod(strings.TrimSpace(req.Period))
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(req.Date) == "" {
		return period, nil, nil
	}
	day, err := domain.ParseDate(req.Date, loc)
	if err != nil {
		return "", nil, err
	}
	return period, &day, nil
}

func toggleProgress(ledger ProgressService, auth Authenticator, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	read := func(c echo.Context) (progressRequest, error) {
		var req progressRequest
		err := decodeBody(c, &req)
		return req, err
	}
	return progressHandler("/api/tasks/:id/progress", auth, loc, logger, read, ledger.Toggle)
}

func showProgress(ledger ProgressService, auth Authenticator, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	read := func(c echo.Context) (progressRequest, error) {
		return progressRequest{Period: c.QueryParam("period"), Date: c.QueryParam("date")}, nil
	}
	return progressHandler("/api/tasks/:id/progress", auth, loc, logger, read, ledger.Show)
}

type progressOp func(ctx context.Context, userID string, taskID int64, p domain.Period, date *domain.Date) (progress.Status, error)

func progressHandler(route string, auth Authenticator, loc *time.Location, logger *log.Logger, read func(echo.Context) (progressRequest, error), op progressOp) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newProgressRequestMetrics(ctx, logger, route)
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		p, authErr := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return unauthorized(c, authErr)
		}
		taskID, ok := pathID(c)
		if !ok {
			metrics.SetErrorStage("invalid_id")
			return badRequest(c, "invalid task id")
		}
		metrics.SetTaskCount(1)
		req, readErr := read(c)
		if readErr != nil {
			metrics.SetErrorStage("decode_request")
			return badRequest(c, "invalid body")
		}
		period, date, parseErr := parseProgressRequest(req, loc)
		if parseErr != nil {
			metrics.SetErrorStage("validation")
			return writeError(c, logger, parseErr)
		}
		metrics.SetPeriod(string(period))

		ledgerStart := time.Now()
		status, ledgerErr := op(ctx, p.UserID, taskID, period, date)
		metrics.ObserveLedger(time.Since(ledgerStart))
		if ledgerErr != nil {
			metrics.SetErrorStage("ledger")
			return writeError(c, logger, ledgerErr)
		}
		metrics.SetDone(status.Done)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, status)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func upcomingReflections(store ReflectionStore, auth Authenticator, clock domain.Clock, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return unauthorized(c, err)
		}
		today := domain.Today(clock)
		reflections, err := store.ReflectionsBetween(c.Request().Context(), today, today.AddDays(upcomingReflectionDays-1))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, reflections)
	}
}

func getNotification(store NotificationStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid notification id")
		}
		n, err := store.GetNotification(c.Request().Context(), id)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, n)
	}
}
