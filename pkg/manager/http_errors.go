package manager

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
)

// mapServiceError maps a service/store-layer error to an HTTP error
// response, at the one boundary that needs to know the HTTP codes.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validErr.Error())
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, jobstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}

	slog.Error("manager: unexpected error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
