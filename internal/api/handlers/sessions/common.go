package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/draftforge/go-contract-session/internal/api/httperrors"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/persistence"
)

// requireUserID extracts the acting identity from the X-User-ID header.
func requireUserID(c echo.Context) (string, error) {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return "", httperrors.NewHTTPError(http.StatusUnauthorized, httperrors.TypeGeneric, "X-User-ID header is required")
	}
	return userID, nil
}

// mapDomainErr translates core error taxonomy into HTTP errors.
func mapDomainErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return httperrors.NewHTTPError(http.StatusNotFound, httperrors.TypeNotFound, "Session not found")
	case errors.Is(err, persistence.ErrLockTimeout):
		return httperrors.NewHTTPError(http.StatusConflict, httperrors.TypeLockTimeout, "Session is busy, try again")
	case errors.Is(err, contract.ErrPermissionDenied):
		return httperrors.NewHTTPError(http.StatusForbidden, httperrors.TypePermissionDenied, err.Error())
	case errors.Is(err, contract.ErrUnknownRole),
		errors.Is(err, contract.ErrNoCategory),
		errors.Is(err, contract.ErrUnknownCategory),
		errors.Is(err, contract.ErrUnknownTemplate),
		errors.Is(err, contract.ErrNotReadyToSign),
		errors.Is(err, contract.ErrNotReadyToBuild),
		errors.Is(err, contract.ErrNoRoleContext):
		return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, err.Error())
	case errors.Is(err, contract.ErrRebuildRequired):
		return httperrors.NewHTTPError(http.StatusConflict, httperrors.TypeValidation, err.Error())
	default:
		return err
	}
}
