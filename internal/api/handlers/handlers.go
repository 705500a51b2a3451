package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/api/handlers/sessions"
)

// AttachAllRoutes registers every handler on the server's route groups.
func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		sessions.PostCreateSessionRoute(s),
		sessions.GetListSessionsRoute(s),
		sessions.GetSessionRoute(s),
		sessions.GetMissingFieldsRoute(s),
		sessions.PostClaimRoleRoute(s),
		sessions.PostSetPersonTypeRoute(s),
		sessions.PostSetCategoryRoute(s),
		sessions.PostSetTemplateRoute(s),
		sessions.PostUpdateFieldRoute(s),
		sessions.PostBuildRoute(s),
		sessions.PostSignRoute(s),
	}
}
