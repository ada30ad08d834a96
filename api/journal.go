package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
)

// queryTaskID reads the optional task_id query value.
func queryTaskID(c echo.Context) (*int64, bool) {
	raw := strings.TrimSpace(c.QueryParam("task_id"))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

func listJournal(store JournalStore, auth Authenticator, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		taskID, ok := queryTaskID(c)
		if !ok {
			return badRequest(c, "invalid task_id")
		}
		filter, err := domain.NewJournalFilter(c.QueryParam("from"), c.QueryParam("to"), taskID, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		entries, err := store.ListJournal(c.Request().Context(), p.UserID, filter)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func createJournal(store JournalStore, auth Authenticator, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		var req domain.JournalRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "invalid body")
		}
		in, err := domain.NewJournalInput(req, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		entry, err := store.CreateJournal(c.Request().Context(), p.UserID, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		logger.WithFields(log.Fields{"journal_id": entry.ID, "user_id": p.UserID}).Debug("journal entry created")
		return c.JSON(http.StatusCreated, entry)
	}
}

func updateJournal(store JournalStore, auth Authenticator, loc *time.Location, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid journal id")
		}
		var req domain.JournalRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "invalid body")
		}
		in, err := domain.NewJournalInput(req, loc)
		if err != nil {
			return writeError(c, logger, err)
		}
		entry, err := store.UpdateJournal(c.Request().Context(), p.UserID, id, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, entry)
	}
}

func deleteJournal(store JournalStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid journal id")
		}
		if err := store.DeleteJournal(c.Request().Context(), p.UserID, id); err != nil {
			return writeError(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listIdentities(store IdentityStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		identities, err := store.ListIdentities(c.Request().Context(), p.UserID)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, identities)
	}
}

func createIdentity(store IdentityStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		var in domain.IdentityInput
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "invalid body")
		}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}
		identity, err := store.CreateIdentity(c.Request().Context(), p.UserID, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, identity)
	}
}

func updateIdentity(store IdentityStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid identity id")
		}
		var in domain.IdentityInput
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "invalid body")
		}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}
		identity, err := store.UpdateIdentity(c.Request().Context(), p.UserID, id, in)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, identity)
	}
}

func deleteIdentity(store IdentityStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := auth.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		id, ok := pathID(c)
		if !ok {
			return badRequest(c, "invalid identity id")
		}
		if err := store.DeleteIdentity(c.Request().Context(), p.UserID, id); err != nil {
			return writeError(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
