package sessions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/session"
)

func PostClaimRoleRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/roles/:role/claim", postClaimRoleHandler(s))
}

func postClaimRoleHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		role := c.Param("role")

		var result *session.Session
		err = s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			if err := s.Contract.ClaimRole(sess, role, userID); err != nil {
				return err
			}
			result = sess
			return nil
		})
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, result)
	}
}
