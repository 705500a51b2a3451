package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/contract"
)

func GetMissingFieldsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:id/missing-fields", getMissingFieldsHandler(s))
}

func getMissingFieldsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if _, err := requireUserID(c); err != nil {
			return err
		}

		scope := contract.ScopeSelf
		if c.QueryParam("scope") == "all" {
			scope = contract.ScopeAll
		}

		sess, err := s.Store.Load(ctx, c.Param("id"))
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, s.Contract.MissingFields(sess, scope))
	}
}
