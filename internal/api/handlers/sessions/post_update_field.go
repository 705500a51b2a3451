package sessions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/api/httperrors"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/session"
)

type updateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Role  string `json:"role"`
}

type updateFieldResponse struct {
	OK    bool               `json:"ok"`
	Error string             `json:"error,omitempty"`
	Field session.FieldState `json:"field"`
}

func PostUpdateFieldRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/fields", postUpdateFieldHandler(s))
}

func postUpdateFieldHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		var body updateFieldRequest
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if body.Field == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "field is required")
		}

		var result contract.UpdateResult
		err = s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			// Capability check before the engine runs: party fields are owned
			// by their role, contract fields by any participant.
			if body.Role != "" {
				if !s.Contract.CanEditPartyField(sess, userID, body.Role) {
					return contract.ErrPermissionDenied
				}
			} else if !s.Contract.CanEditContractField(sess, userID) {
				return contract.ErrPermissionDenied
			}

			result = s.Contract.UpdateField(sess, contract.UpdateRequest{
				Field:          body.Field,
				Value:          body.Value,
				Role:           body.Role,
				ActingIdentity: userID,
				Source:         "api",
			})
			return nil
		})
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, updateFieldResponse{
			OK:    result.OK,
			Error: result.Error,
			Field: result.Field,
		})
	}
}
