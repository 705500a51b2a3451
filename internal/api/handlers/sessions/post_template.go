package sessions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/api/httperrors"
	"github.com/draftforge/go-contract-session/internal/session"
)

type setTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

func PostSetTemplateRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/template", postSetTemplateHandler(s))
}

func postSetTemplateHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if _, err := requireUserID(c); err != nil {
			return err
		}

		var body setTemplateRequest
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if body.TemplateID == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "template_id is required")
		}

		var result *session.Session
		err := s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			if err := s.Contract.SetTemplate(sess, body.TemplateID); err != nil {
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
