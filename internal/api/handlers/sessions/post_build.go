package sessions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/session"
)

type buildResponse struct {
	State            string `json:"state"`
	CanBuildContract bool   `json:"can_build_contract"`
}

func PostBuildRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/build", postBuildHandler(s))
}

func postBuildHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		var result buildResponse
		err = s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			if !s.Contract.CanEditContractField(sess, userID) {
				return contract.ErrPermissionDenied
			}
			if err := s.Contract.MarkBuilt(sess); err != nil {
				return err
			}
			result = buildResponse{
				State:            string(sess.State),
				CanBuildContract: sess.CanBuildContract,
			}
			return nil
		})
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, result)
	}
}
