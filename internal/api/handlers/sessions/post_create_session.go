package sessions

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
)

type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

func PostCreateSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("", postCreateSessionHandler(s))
}

func postCreateSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		var body createSessionRequest
		if err := c.Bind(&body); err != nil && err != echo.ErrUnsupportedMediaType {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}

		id := body.SessionID
		if id == "" {
			id = uuid.New().String()
		}

		sess, err := s.Store.GetOrCreate(ctx, id, userID)
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusCreated, sess)
	}
}
