package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
	"github.com/dmachibya/faithexercises-api/notify"
)

const (
	headerIdempotencyKey    = "Idempotency-Key"
	defaultNotificationPage = 20
	maxNotificationPage     = 100
)

func registerAdmin(g *echo.Group, deps Deps) {
	logger := deps.Logger
	g.GET("/exercises", adminListExercises(deps.Catalog, logger))
	g.POST("/exercises", adminCreateExercise(deps.Catalog, logger))
	g.GET("/tasks", adminListTasks(deps.Catalog, logger))
	g.POST("/tasks", adminCreateTask(deps.Catalog, deps.Notifier, deps.Location, logger))
	g.PUT("/tasks/:id", adminUpdateTask(deps.Catalog, deps.Ledger, deps.Notifier, deps.Location, logger))
	g.DELETE("/tasks/:id", adminDeleteTask(deps.Catalog, deps.Ledger, deps.Notifier, logger))
	g.GET("/reflections", adminListReflections(deps.Reflections, logger))
	g.POST("/reflections", adminCreateReflection(deps.Reflections, deps.Location, logger))
	g.PUT("/reflections/:id", adminUpdateReflection(deps.Reflections, deps.Location, logger))
	g.DELETE("/reflections/:id", adminDeleteReflection(deps.Reflections, logger))
	g.GET("/notifications", adminListNotifications(deps.Notifications, logger))
	g.POST("/notifications", adminCreateNotification(deps.Notifications, deps.Notifier, deps.Deduper, logger))
	g.GET("/dashboard", adminDashboard(deps.Dashboard, deps.Clock, logger))
	g.GET("/users", adminListUsers(deps.Users, logger))
	g.GET("/users/:id", adminShowUser(deps.Users, logger))
}

func adminListExercises(catalog Catalog, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		exercises, err := catalog.ListExercises(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, exercises)
	}
}

func adminCreateExercise(catalog Catalog, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.ExerciseInput
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "invalid body")
		}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}
		exercise, err := catalog.CreateExercise(c.Request().Context(), in)
		if err != nil {
			return writeError(c, logger, err)
		}
		logger.WithFields(log.Fields{"exercise_id": exercise.ID, "admin": principalFrom(c).UserID}).Info("exercise created")
		return c.JSON(http.StatusCreated, exercise)
	}
}

func adminListTasks(catalog Catalog, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := catalog.ListTasks(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

type taskResponse struct {
	Task         domain.Task            `json:"task"`
	Notification domain.DispatchOutcome `json:"notification"`
}

func taskFields(task domain.Task) log.Fields {
	fields := log.Fields{
		"task_id":     task.ID,
		"exercise_id": task.ExerciseID,
		"is_active":   task.IsActive,
		"schedule":    task.Schedule,
	}
	if task.StartDate != nil {
		fields["start_date"] = task.StartDate.String()
	}
	return fields
}

func adminCreateTask(catalog Catalog, notifier TaskNotifier, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req domain.TaskRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "invalid body")
		}
		in, err := domain.NewTaskInput(req, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		if _, err := catalog.GetExercise(ctx, in.ExerciseID); err != nil {
			return writeError(c, logger, err)
		}
		task, err := catalog.CreateTask(ctx, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		logger.WithFields(taskFields(task)).Info("task created")
		outcome := notifier.TaskCreated(ctx, task)
		return c.JSON(http.StatusCreated, taskResponse{Task: task, Notification: outcome})
	}
}

func adminUpdateTask(catalog Catalog, ledger LedgerAdmin, notifier TaskNotifier, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid task id")
		}
		var req domain.TaskRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "invalid body")
		}
		in, err := domain.NewTaskInput(req, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		before, err := catalog.GetTask(ctx, id)
		if err != nil {
			return writeError(c, logger, err)
		}
		if in.ExerciseID != before.ExerciseID {
			if _, err := catalog.GetExercise(ctx, in.ExerciseID); err != nil {
				return writeError(c, logger, err)
			}
		}
		if in.Schedule != before.Schedule {
			has, err := ledger.HasProgress(ctx, id)
			if err != nil {
				return writeError(c, logger, err)
			}
			if has {
				return writeError(c, logger, fmt.Errorf("schedule cannot change once progress exists: %w", domain.ErrConflict))
			}
		}
		after, err := catalog.UpdateTask(ctx, id, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		logger.WithFields(taskFields(after)).Info("task updated")
		outcome := notifier.TaskUpdated(ctx, before, after)
		return c.JSON(http.StatusOK, taskResponse{Task: after, Notification: outcome})
	}
}

func adminDeleteTask(catalog Catalog, ledger LedgerAdmin, notifier TaskNotifier, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid task id")
		}
		if err := catalog.DeleteTask(ctx, id); err != nil {
			return writeError(c, logger, err)
		}
		notifier.TaskDeleted(ctx, id)
		if err := ledger.PurgeTask(ctx, id); err != nil {
			logger.WithFields(log.Fields{"task_id": id, "error": err}).Error("purge task progress failed")
		}
		logger.WithField("task_id", id).Info("task deleted")
		return c.NoContent(http.StatusNoContent)
	}
}

func adminListReflections(store ReflectionStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		reflections, err := store.ListReflections(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, reflections)
	}
}

func adminCreateReflection(store ReflectionStore, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req domain.ReflectionRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "invalid body")
		}
		in, err := domain.NewReflectionInput(req, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		r, err := store.CreateReflection(c.Request().Context(), in)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, r)
	}
}

func adminUpdateReflection(store ReflectionStore, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid reflection id")
		}
		var req domain.ReflectionRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "invalid body")
		}
		in, err := domain.NewReflectionInput(req, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		r, err := store.UpdateReflection(c.Request().Context(), id, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, r)
	}
}

func adminDeleteReflection(store ReflectionStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid reflection id")
		}
		if err := store.DeleteReflection(c.Request().Context(), id); err != nil {
			return writeError(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type notificationPage struct {
	Data    []domain.CustomNotification `json:"data"`
	Total   int                         `json:"total"`
	Page    int                         `json:"page"`
	PerPage int                         `json:"per_page"`
}

func queryInt(c echo.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func adminListNotifications(store NotificationStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, ok := queryInt(c, "page", 1)
		if !ok {
			return badRequest(c, "invalid page")
		}
		perPage, ok := queryInt(c, "per_page", defaultNotificationPage)
		if !ok {
			return badRequest(c, "invalid per_page")
		}
		perPage = min(perPage, maxNotificationPage)
		items, total, err := store.ListNotifications(c.Request().Context(), perPage, (page-1)*perPage)
		if err != nil {
			return writeError(c, logger, err)
		}
		if items == nil {
			items = []domain.CustomNotification{}
		}
		return c.JSON(http.StatusOK, notificationPage{Data: items, Total: total, Page: page, PerPage: perPage})
	}
}

type notificationResponse struct {
	Notification domain.CustomNotification `json:"notification"`
	Delivery     domain.DispatchOutcome    `json:"delivery"`
}

func adminCreateNotification(store NotificationStore, notifier TaskNotifier, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var in domain.NotificationInput
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "invalid body")
		}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}

		adminID := principalFrom(c).UserID
		key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
		if key != "" && deduper != nil {
			added, err := deduper.Add(ctx, adminID, key)
			if err != nil {
				logger.WithFields(log.Fields{"idempotency_key": key, "error": err}).Warn("idempotency check failed")
				key = ""
			} else if !added {
				return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate submission"})
			}
		}

		n, err := store.CreateNotification(ctx, in)
		if err != nil {
			if key != "" && deduper != nil {
				if rerr := deduper.Remove(ctx, adminID, key); rerr != nil {
					logger.WithFields(log.Fields{"idempotency_key": key, "error": rerr}).Warn("release idempotency key failed")
				}
			}
			return writeError(c, logger, err)
		}

		fields := log.Fields{"notification_id": n.ID, "admin": adminID}
		delivery := domain.DispatchSent
		if err := notifier.Broadcast(ctx, notify.CustomMessage(n)); err != nil {
			delivery = domain.DispatchFailed
			fields["error"] = err
			logger.WithFields(fields).Error("custom notification send failed")
		} else {
			logger.WithFields(fields).Info("custom notification sent")
		}
		return c.JSON(http.StatusCreated, notificationResponse{Notification: n, Delivery: delivery})
	}
}

func adminDashboard(source DashboardSource, clock domain.Clock, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := source.Dashboard(c.Request().Context(), clock.Now())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, d)
	}
}

func adminListUsers(users UserDirectory, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := users.Users(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func adminShowUser(users UserDirectory, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := strings.TrimSpace(c.Param("id"))
		if userID == "" {
			return badRequest(c, "invalid user id")
		}
		overview, err := users.UserOverview(c.Request().Context(), userID)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, overview)
	}
}
