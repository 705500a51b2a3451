package sessions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/api/httperrors"
	"github.com/draftforge/go-contract-session/internal/session"
)

type setCategoryRequest struct {
	CategoryID string `json:"category_id"`
}

func PostSetCategoryRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/category", postSetCategoryHandler(s))
}

func postSetCategoryHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if _, err := requireUserID(c); err != nil {
			return err
		}

		var body setCategoryRequest
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if body.CategoryID == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "category_id is required")
		}

		var result *session.Session
		err := s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			if err := s.Contract.SetCategory(sess, body.CategoryID); err != nil {
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
