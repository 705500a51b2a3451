package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
)

func GetListSessionsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("", getListSessionsHandler(s))
}

func getListSessionsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		sessions, err := s.Store.ListByIdentity(ctx, userID)
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"sessions": sessions,
			"count":    len(sessions),
		})
	}
}
