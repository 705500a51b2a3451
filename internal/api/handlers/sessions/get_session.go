package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
)

func GetSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:id", getSessionHandler(s))
}

func getSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		sess, err := s.Store.Load(ctx, c.Param("id"))
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, sess)
	}
}
