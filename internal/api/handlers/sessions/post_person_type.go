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

type setPersonTypeRequest struct {
	PersonType string `json:"person_type"`
}

func PostSetPersonTypeRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/roles/:role/person-type", postSetPersonTypeHandler(s))
}

func postSetPersonTypeHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		role := c.Param("role")

		var body setPersonTypeRequest
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if body.PersonType == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "person_type is required")
		}

		var result *session.Session
		err = s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			if !s.Contract.CanEditPartyField(sess, userID, role) {
				return contract.ErrPermissionDenied
			}
			s.Contract.SetPersonType(sess, role, body.PersonType)
			result = sess
			return nil
		})
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, result)
	}
}
