package contract

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/session"
)

var (
	// ErrNotReadyToSign is returned when the document has not been built yet.
	ErrNotReadyToSign = errors.New("contract is not ready to be signed")

	// ErrRebuildRequired is returned when the content changed after the last
	// build; the document must be rebuilt before consent can be given.
	ErrRebuildRequired = errors.New("contract content has changed, rebuild before signing")

	// ErrNoRoleContext is returned when the signer's role cannot be resolved.
	ErrNoRoleContext = errors.New("set party context before signing")

	// ErrNotReadyToBuild is returned when a build is requested before every
	// required field is validated.
	ErrNotReadyToBuild = errors.New("contract is not ready to build")
)

// SignOutcome reports which roles were signed and the resulting state.
type SignOutcome struct {
	SignedRoles   []string
	IsFullySigned bool
	State         session.State
}

// Sign records consent for every role the identity owns. In full filling mode
// the creator signs all still-unsigned required roles. Only a built document
// can be signed; when all parties have signed the session completes.
func (svc *Service) Sign(sess *session.Session, identity string) (SignOutcome, error) {
	if sess.State != session.StateBuilt && sess.State != session.StateReadyToSign {
		if sess.CanBuildContract {
			return SignOutcome{}, ErrRebuildRequired
		}
		return SignOutcome{}, ErrNotReadyToSign
	}

	ownedRoles := sess.RolesOwnedBy(identity)

	rolesToSign := sess.RequiredRoles
	if len(rolesToSign) == 0 {
		for role := range sess.PartyTypes {
			rolesToSign = append(rolesToSign, role)
		}
	}

	var signed []string
	switch {
	case sess.FillingMode == session.FillingModeFull && sess.CreatorID == identity:
		for _, role := range rolesToSign {
			if !sess.Signatures[role] {
				sess.Signatures[role] = true
				signed = append(signed, role)
			}
		}
		log.Info().
			Str("session_id", sess.ID).
			Str("identity", identity).
			Strs("roles", signed).
			Msg("Creator signed all roles in full mode")
	case len(ownedRoles) > 0:
		for _, role := range ownedRoles {
			if !sess.Signatures[role] {
				sess.Signatures[role] = true
				signed = append(signed, role)
			}
		}
	default:
		log.Error().
			Str("session_id", sess.ID).
			Str("identity", identity).
			Msg("Cannot determine signer role")
		return SignOutcome{}, ErrNoRoleContext
	}

	if sess.IsFullySigned() {
		sess.State = session.StateCompleted
	}

	if len(signed) > 0 {
		sess.AppendEvent(session.Event{
			Type:   "sign",
			UserID: identity,
			Roles:  signed,
			State:  string(sess.State),
			Valid:  true,
		})
	}

	return SignOutcome{
		SignedRoles:   signed,
		IsFullySigned: sess.IsFullySigned(),
		State:         sess.State,
	}, nil
}

// MarkBuilt records a successful document render and advances the lifecycle.
func (svc *Service) MarkBuilt(sess *session.Session) error {
	if !sess.CanBuildContract {
		return ErrNotReadyToBuild
	}
	if !session.CanTransition(sess.State, session.StateBuilt) {
		return errors.Wrapf(ErrNotReadyToBuild, "state %q", sess.State)
	}
	sess.State = session.StateBuilt
	sess.AppendEvent(session.Event{Type: "build", State: string(session.StateBuilt), Valid: true})
	return nil
}
