package contract

import (
	"github.com/draftforge/go-contract-session/internal/session"
)

// Scope selects whose fields a readiness computation covers.
type Scope string

const (
	// ScopeSelf restricts partial-mode sessions to the current role's fields.
	ScopeSelf Scope = "self"
	// ScopeAll covers every declared role regardless of filling mode.
	ScopeAll Scope = "all"
)

// FieldSchema describes one required field of the session's template.
type FieldSchema struct {
	Key       string // "contract_date" or "lessor.name"
	FieldName string
	Role      string // empty for contract fields
	Label     string
	Required  bool
	Type      string
}

// RequiredFields lists the required fields for the session given its
// category, declared person types and filling mode.
func (svc *Service) RequiredFields(sess *session.Session, scope Scope) []FieldSchema {
	if sess.CategoryID == "" {
		return nil
	}
	cat, ok := svc.categories.Category(sess.CategoryID)
	if !ok {
		return nil
	}

	var result []FieldSchema

	for _, f := range cat.ContractFields {
		if !f.Required {
			continue
		}
		result = append(result, FieldSchema{
			Key:       f.Name,
			FieldName: f.Name,
			Label:     f.Label,
			Required:  true,
			Type:      f.Type,
		})
	}

	targetRoles := cat.RoleNames()
	if scope == ScopeSelf && sess.FillingMode == session.FillingModePartial && sess.Role != "" {
		if _, ok := cat.Role(sess.Role); ok {
			targetRoles = []string{sess.Role}
		}
	}

	for _, role := range targetRoles {
		personType := svc.effectivePersonType(sess, role)
		module, ok := cat.PartyModules[personType]
		if !ok {
			continue
		}
		for _, f := range module.Fields {
			if !f.Required {
				continue
			}
			result = append(result, FieldSchema{
				Key:       role + "." + f.Name,
				FieldName: f.Name,
				Role:      role,
				Label:     f.Label,
				Required:  true,
				Type:      f.Type,
			})
		}
	}

	return result
}

// effectivePersonType resolves the person type acting for a role, falling
// back through the declared mapping, the current session context and the
// category defaults.
func (svc *Service) effectivePersonType(sess *session.Session, role string) string {
	if t, ok := sess.PartyTypes[role]; ok && t != "" {
		return t
	}
	if role == sess.Role && sess.PersonType != "" {
		return sess.PersonType
	}

	if sess.CategoryID != "" {
		if cat, ok := svc.categories.Category(sess.CategoryID); ok {
			if r, ok := cat.Role(role); ok {
				if r.DefaultPersonType != "" {
					return r.DefaultPersonType
				}
				if len(r.AllowedPersonTypes) > 0 {
					return r.AllowedPersonTypes[0]
				}
			}
			for t := range cat.PartyModules {
				return t
			}
		}
	}

	return "individual"
}

// isReady reports whether every required field across the applicable roles is
// validated. A session without a template is never ready.
func (svc *Service) isReady(sess *session.Session) bool {
	if sess.TemplateID == "" {
		return false
	}
	for _, r := range svc.RequiredFields(sess, ScopeSelf) {
		if !fieldOK(sess, r) {
			return false
		}
	}
	return true
}

func fieldOK(sess *session.Session, r FieldSchema) bool {
	var fs *session.FieldState
	if r.Role != "" {
		fs = sess.PartyFields[r.Role][r.FieldName]
	} else {
		fs = sess.ContractFields[r.FieldName]
	}
	return fs != nil && fs.Status == session.FieldStatusOK
}

// recomputeReadiness refreshes CanBuildContract, the coarse lifecycle state
// and the progress counters after a field mutation.
func (svc *Service) recomputeReadiness(sess *session.Session) {
	ready := svc.isReady(sess)
	sess.CanBuildContract = ready
	if ready {
		sess.State = session.StateReadyToBuild
	} else {
		sess.State = session.StateCollectingFields
	}
	svc.updateProgress(sess)
}

func (svc *Service) updateProgress(sess *session.Session) {
	required := svc.RequiredFields(sess, ScopeSelf)
	filled := 0
	for _, r := range required {
		if fieldOK(sess, r) {
			filled++
		}
	}
	sess.Progress = session.Progress{
		RequiredTotal:  len(required),
		RequiredFilled: filled,
	}
}

// MissingRole groups the missing fields of one role.
type MissingRole struct {
	Role          string        `json:"role"`
	RoleLabel     string        `json:"role_label"`
	MissingFields []FieldSchema `json:"missing_fields"`
}

// MissingReport is the structured list of unmet required fields, used by
// callers to render precise prompts.
type MissingReport struct {
	IsReady     bool                   `json:"is_ready"`
	IsReadySelf bool                   `json:"is_ready_self"`
	IsReadyAll  bool                   `json:"is_ready_all"`
	Contract    []FieldSchema          `json:"contract"`
	Roles       map[string]MissingRole `json:"roles"`
}

// MissingFields reports which required fields are still unmet for the given
// scope. A missing template is reported as a pseudo contract field.
func (svc *Service) MissingFields(sess *session.Session, scope Scope) MissingReport {
	report := MissingReport{Roles: map[string]MissingRole{}}

	var roleLabels map[string]string
	if cat, ok := svc.categories.Category(sess.CategoryID); ok {
		roleLabels = make(map[string]string, len(cat.Roles))
		for _, r := range cat.Roles {
			roleLabels[r.Name] = r.Label
		}
	}

	collect := func(scope Scope) (bool, []FieldSchema, map[string]MissingRole) {
		ready := true
		var contract []FieldSchema
		roles := map[string]MissingRole{}
		for _, r := range svc.RequiredFields(sess, scope) {
			if fieldOK(sess, r) {
				continue
			}
			ready = false
			if r.Role == "" {
				contract = append(contract, r)
				continue
			}
			entry, ok := roles[r.Role]
			if !ok {
				entry = MissingRole{Role: r.Role, RoleLabel: roleLabels[r.Role]}
				if entry.RoleLabel == "" {
					entry.RoleLabel = r.Role
				}
			}
			entry.MissingFields = append(entry.MissingFields, r)
			roles[r.Role] = entry
		}
		return ready, contract, roles
	}

	var contract []FieldSchema
	report.IsReady, contract, report.Roles = collect(scope)
	report.IsReadySelf, _, _ = collect(ScopeSelf)
	report.IsReadyAll, _, _ = collect(ScopeAll)
	report.Contract = contract

	if sess.TemplateID == "" {
		report.Contract = append([]FieldSchema{{
			Key:       "template_id",
			FieldName: "template_id",
			Label:     "Contract template",
			Required:  true,
		}}, report.Contract...)
		report.IsReady = false
		report.IsReadySelf = false
		report.IsReadyAll = false
	}

	return report
}
