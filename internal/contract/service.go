package contract

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/category"
	"github.com/draftforge/go-contract-session/internal/session"
	"github.com/draftforge/go-contract-session/internal/validation"
)

var (
	// ErrPermissionDenied covers role conflicts and edits forbidden by
	// signature state. Terminal for the request, never retried automatically.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnknownRole is returned when a role is not declared by the category.
	ErrUnknownRole = errors.New("role does not exist in category")

	// ErrNoCategory is returned for operations that require a selected category.
	ErrNoCategory = errors.New("category is not set")

	// ErrUnknownCategory is returned when the metadata provider does not know
	// the requested category.
	ErrUnknownCategory = errors.New("category not found")

	// ErrUnknownTemplate is returned when a template does not belong to the
	// selected category.
	ErrUnknownTemplate = errors.New("template does not belong to category")
)

// Service implements the guarded mutation operations over a session snapshot.
// It holds no session state itself; every method mutates the handle passed in
// and is meant to run inside Router.WithSession.
type Service struct {
	categories category.Provider
	validators *validation.Registry
}

func NewService(categories category.Provider, validators *validation.Registry) *Service {
	if validators == nil {
		validators = validation.Default()
	}
	return &Service{categories: categories, validators: validators}
}

// ClaimRole assigns a role to an identity. Claiming a role you already own is
// a no-op; every other conflict is a permission error. One role per identity,
// one identity per role.
func (svc *Service) ClaimRole(sess *session.Session, role string, identity string) error {
	if role == "" {
		return errors.New("role must be specified")
	}
	if identity == "" {
		return errors.New("identity must be specified")
	}
	if sess.CategoryID == "" {
		return ErrNoCategory
	}

	cat, ok := svc.categories.Category(sess.CategoryID)
	if !ok {
		return errors.Wrap(ErrUnknownCategory, sess.CategoryID)
	}
	if _, ok := cat.Role(role); !ok {
		return errors.Wrapf(ErrUnknownRole, "role %q in category %q", role, sess.CategoryID)
	}

	for existingRole, owner := range sess.RoleOwners {
		if owner != identity {
			continue
		}
		if existingRole == role {
			// Already owns exactly this role.
			return nil
		}
		log.Warn().
			Str("session_id", sess.ID).
			Str("identity", identity).
			Str("owned_role", existingRole).
			Msg("Identity already owns another role")
		return errors.Wrapf(ErrPermissionDenied, "identity already owns role %q", existingRole)
	}

	if owner := sess.RoleOwners[role]; owner != "" && owner != identity {
		log.Warn().
			Str("session_id", sess.ID).
			Str("role", role).
			Str("owner", owner).
			Msg("Role already claimed")
		return errors.Wrapf(ErrPermissionDenied, "role %q is already claimed", role)
	}

	sess.RoleOwners[role] = identity
	return nil
}

// CanEditPartyField is the capability check for editing fields of targetRole:
// the owner may edit; a non-owner never may; an unclaimed role may be
// pre-filled by the creator in full filling mode only.
func (svc *Service) CanEditPartyField(sess *session.Session, actingIdentity string, targetRole string) bool {
	if sess.CategoryID == "" {
		return false
	}

	owner := sess.RoleOwners[targetRole]
	if owner == actingIdentity && owner != "" {
		return true
	}
	if owner != "" {
		return false
	}

	return sess.CreatorID == actingIdentity && sess.FillingMode == session.FillingModeFull
}

// CanEditContractField allows any role owner to edit shared fields, and the
// creator before any role has been claimed.
func (svc *Service) CanEditContractField(sess *session.Session, actingIdentity string) bool {
	if sess.CategoryID == "" {
		return false
	}

	if len(sess.RolesOwnedBy(actingIdentity)) > 0 {
		return true
	}

	return sess.CreatorID == actingIdentity
}

// SetPersonType declares the person type of a role. A type change clears the
// role's field states and ledger entries, resets its signature and recomputes
// readiness, since the field set for the new type may differ.
func (svc *Service) SetPersonType(sess *session.Session, role string, personType string) {
	sess.Role = role
	sess.PersonType = personType

	oldType := sess.PartyTypes[role]
	sess.PartyTypes[role] = personType

	if oldType == "" || oldType == personType {
		return
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("role", role).
		Str("old_type", oldType).
		Str("new_type", personType).
		Msg("Person type changed, clearing role fields")

	if fields, ok := sess.PartyFields[role]; ok {
		for name := range fields {
			delete(fields, name)
		}
	}

	prefix := role + "."
	for key := range sess.AllData {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(sess.AllData, key)
		}
	}

	if sess.Signatures[role] {
		log.Info().Str("session_id", sess.ID).Str("role", role).Msg("Invalidating signature after person type change")
		sess.Signatures[role] = false
	}

	svc.recomputeReadiness(sess)
}

// SetCategory selects the document category, resetting everything derived
// from the previous one. When the category has exactly one template it is
// selected automatically.
func (svc *Service) SetCategory(sess *session.Session, categoryID string) error {
	cat, ok := svc.categories.Category(categoryID)
	if !ok {
		return errors.Wrap(ErrUnknownCategory, categoryID)
	}

	sess.CategoryID = categoryID

	templates := svc.categories.TemplatesByCategory(categoryID)
	if len(templates) == 1 {
		sess.TemplateID = templates[0].ID
		sess.State = session.StateTemplateSelected
		log.Info().
			Str("session_id", sess.ID).
			Str("template_id", sess.TemplateID).
			Str("category_id", categoryID).
			Msg("Auto-selected single template")
	} else {
		sess.TemplateID = ""
		sess.State = session.StateCategorySelected
	}

	sess.PartyFields = map[string]map[string]*session.FieldState{}
	sess.ContractFields = map[string]*session.FieldState{}
	sess.CanBuildContract = false
	sess.PartyTypes = map[string]string{}
	sess.RoleOwners = map[string]string{}
	sess.Signatures = map[string]bool{}
	sess.Progress = session.Progress{}
	sess.AllData = map[string]*session.LedgerEntry{}

	// Required roles drive the fully-signed predicate; keep them in sync with
	// the category metadata.
	sess.RequiredRoles = cat.RoleNames()

	log.Info().
		Str("session_id", sess.ID).
		Str("category_id", categoryID).
		Strs("required_roles", sess.RequiredRoles).
		Msg("Category selected")
	return nil
}

// SetTemplate selects a template within the current category. Field data is
// preserved; readiness is recomputed against the new template.
func (svc *Service) SetTemplate(sess *session.Session, templateID string) error {
	if sess.CategoryID == "" {
		return ErrNoCategory
	}
	if sess.TemplateID == templateID {
		return nil
	}

	found := false
	for _, t := range svc.categories.TemplatesByCategory(sess.CategoryID) {
		if t.ID == templateID {
			found = true
			break
		}
	}
	if !found {
		return errors.Wrapf(ErrUnknownTemplate, "template %q in category %q", templateID, sess.CategoryID)
	}

	sess.TemplateID = templateID
	sess.State = session.StateTemplateSelected

	// Preserved field data may already satisfy the template.
	if svc.isReady(sess) {
		sess.CanBuildContract = true
		sess.State = session.StateReadyToBuild
	} else {
		sess.CanBuildContract = false
	}
	svc.updateProgress(sess)
	return nil
}
