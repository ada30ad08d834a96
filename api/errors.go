package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
)

type errorResponse struct {
	Error  string       `json:"error"`
	Field  string       `json:"field,omitempty"`
	Window *windowRange `json:"window,omitempty"`
}

type windowRange struct {
	Start domain.Date `json:"start"`
	End   domain.Date `json:"end"`
}

// errorStatus maps a domain error to its HTTP status and body.
func errorStatus(err error) (int, errorResponse) {
	var window *domain.OutOfWindowError
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &window):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  window.Error(),
			Window: &windowRange{Start: window.Start, End: window.End},
		}
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity, errorResponse{Error: invalid.Error(), Field: invalid.Field}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, errMissingAuthorization), errors.Is(err, errBadAuthorization):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: domain.ErrForbidden.Error()}
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, errorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

// writeError renders err. Unexpected failures are logged with the route.
func writeError(c echo.Context, logger *log.Logger, err error) error {
	status, body := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithFields(log.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
			"error":  err,
		}).Error("request failed")
	}
	return c.JSON(status, body)
}

func unauthorized(c echo.Context, err error) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
