package contract

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/category"
	"github.com/draftforge/go-contract-session/internal/session"
	"github.com/draftforge/go-contract-session/internal/validation"
)

// UpdateRequest carries one field mutation into the engine. Role may be empty
// for contract fields or when the session's current role context applies.
type UpdateRequest struct {
	Field          string
	Value          string
	Role           string
	ActingIdentity string
	Source         string
}

// UpdateResult is the structured outcome of UpdateField. Failure modes are
// returned as data so batch callers can continue with other fields.
type UpdateResult struct {
	OK    bool
	Error string
	Field session.FieldState
}

func rejected(msg string, fieldErr string) UpdateResult {
	return UpdateResult{
		OK:    false,
		Error: msg,
		Field: session.FieldState{Status: session.FieldStatusError, Error: fieldErr},
	}
}

// UpdateField validates and applies one field mutation: resolve the field
// against the category schema, validate the value, update its state, record
// the ledger and history entries, recompute readiness and invalidate the
// signatures of every role other than the acting one. Must run inside a
// guarded transaction.
func (svc *Service) UpdateField(sess *session.Session, req UpdateRequest) UpdateResult {
	rawValue := req.Value

	// Immutability after completion: the fully-signed predicate, not the
	// lifecycle state, decides.
	if sess.IsFullySigned() {
		return rejected("Document is fully signed. Editing is not possible.", "Fully signed")
	}

	if sess.CategoryID == "" {
		return rejected("A category must be selected first.", "No category")
	}
	cat, ok := svc.categories.Category(sess.CategoryID)
	if !ok {
		return rejected("A category must be selected first.", "No category")
	}

	// Resolve contract field vs party field of some role.
	entity, isContractField := cat.ContractField(req.Field)

	effectiveRole := req.Role
	if effectiveRole == "" {
		effectiveRole = sess.Role
	}

	var partyMeta *category.Field
	if !isContractField {
		if effectiveRole == "" {
			return rejected("A role must be selected or passed explicitly.", "Role not determined")
		}

		personType := svc.effectivePersonType(sess, effectiveRole)
		// Record an applied fallback so repeated calls resolve identically.
		if _, ok := sess.PartyTypes[effectiveRole]; !ok {
			sess.PartyTypes[effectiveRole] = personType
		}

		module, ok := cat.PartyModules[personType]
		if !ok {
			return rejected("Field does not belong to the selected category.", "Unknown field")
		}
		for i := range module.Fields {
			if module.Fields[i].Name == req.Field {
				partyMeta = &module.Fields[i]
				break
			}
		}
		if partyMeta == nil {
			return rejected("Field does not belong to the selected category.", "Unknown field")
		}
	}

	// Signed parties cannot edit their own side either.
	if effectiveRole != "" && sess.Signatures[effectiveRole] {
		return rejected("You have already signed this document. Editing is forbidden.", "Signed by user")
	}

	required := true
	if isContractField {
		required = entity.Required
	} else if partyMeta != nil {
		required = partyMeta.Required
	}

	var errorOverride string
	if required && strings.TrimSpace(rawValue) == "" {
		errorOverride = "Value must not be empty."
	}

	// Classify and validate. Contract fields carry a declared type; party
	// fields rely on the name heuristic.
	valueType := "text"
	if isContractField {
		valueType = entity.Type
	} else {
		valueType = validation.InferType(req.Field)
	}

	var normalized, errMsg string
	if !required && strings.TrimSpace(rawValue) == "" {
		normalized, errMsg = "", ""
	} else {
		normalized, errMsg = svc.validators.Validate(valueType, rawValue)
	}
	if errorOverride != "" {
		errMsg = errorOverride
		normalized = rawValue
	}

	// Update field state.
	var fs *session.FieldState
	if isContractField {
		fs = sess.ContractFields[req.Field]
		if fs == nil {
			fs = &session.FieldState{Status: session.FieldStatusEmpty}
			sess.ContractFields[req.Field] = fs
		}
	} else {
		roleFields := sess.PartyFields[effectiveRole]
		if roleFields == nil {
			roleFields = map[string]*session.FieldState{}
			sess.PartyFields[effectiveRole] = roleFields
		}
		fs = roleFields[req.Field]
		if fs == nil {
			fs = &session.FieldState{Status: session.FieldStatusEmpty}
			roleFields[req.Field] = fs
		}
	}

	ok = errMsg == ""
	if ok {
		fs.Status = session.FieldStatusOK
		fs.Error = ""
	} else {
		fs.Status = session.FieldStatusError
		fs.Error = errMsg
	}

	// Ledger entry: key is "role.field" for party fields.
	key := req.Field
	if !isContractField {
		key = effectiveRole + "." + req.Field
	}
	entry := sess.AllData[key]
	if entry == nil {
		entry = &session.LedgerEntry{}
		sess.AllData[key] = entry
	}
	if ok {
		entry.Current = normalized
	}
	entry.Validated = ok
	source := req.Source
	if source == "" {
		source = "api"
	}
	entry.Source = source

	evt := session.Event{
		Type:   "field_update",
		Key:    key,
		UserID: req.ActingIdentity,
		Role:   effectiveRole,
		Value:  rawValue,
		Valid:  ok,
		Source: source,
	}
	if ok {
		evt.Normalized = normalized
	}
	sess.AppendEvent(evt)

	svc.recomputeReadiness(sess)

	// Content changed: prior consent of every other party is void.
	if ok {
		var invalidated []string
		for role, signed := range sess.Signatures {
			if signed && role != effectiveRole {
				sess.Signatures[role] = false
				invalidated = append(invalidated, role)
			}
		}
		if len(invalidated) > 0 {
			log.Info().
				Str("session_id", sess.ID).
				Strs("roles", invalidated).
				Str("edited_by", effectiveRole).
				Msg("Invalidated signatures after field update")
		}
	}

	return UpdateResult{OK: ok, Error: errMsg, Field: *fs}
}
