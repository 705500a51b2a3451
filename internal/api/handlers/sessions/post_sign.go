package sessions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/session"
)

type signResponse struct {
	SignedRoles []string        `json:"signed_roles"`
	IsSigned    bool            `json:"is_signed"`
	Signatures  map[string]bool `json:"signatures"`
	State       string          `json:"state"`
}

func PostSignRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/sign", postSignHandler(s))
}

func postSignHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		userID, err := requireUserID(c)
		if err != nil {
			return err
		}

		var outcome contract.SignOutcome
		var signatures map[string]bool
		err = s.Store.WithSession(ctx, c.Param("id"), func(_ context.Context, sess *session.Session) error {
			var signErr error
			outcome, signErr = s.Contract.Sign(sess, userID)
			if signErr != nil {
				return signErr
			}
			signatures = sess.Signatures
			return nil
		})
		if err != nil {
			return mapDomainErr(err)
		}

		return c.JSON(http.StatusOK, signResponse{
			SignedRoles: outcome.SignedRoles,
			IsSigned:    outcome.IsFullySigned,
			Signatures:  signatures,
			State:       string(outcome.State),
		})
	}
}
