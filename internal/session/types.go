package session

import "time"

// FieldStatus is the canonical three-value status of a single field.
type FieldStatus string

const (
	FieldStatusEmpty FieldStatus = "empty"
	FieldStatusOK    FieldStatus = "ok"
	FieldStatusError FieldStatus = "error"
)

// FieldState tracks validation status of one field. Values themselves live in
// the AllData ledger, not here.
type FieldState struct {
	Status FieldStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// FillingMode controls who may edit fields of unclaimed roles.
type FillingMode string

const (
	// FillingModePartial restricts every identity to its own claimed role.
	FillingModePartial FillingMode = "partial"
	// FillingModeFull lets the creator pre-fill other roles before they are claimed.
	FillingModeFull FillingMode = "full"
)

// LedgerEntry is one slot of the flattened value+provenance ledger consumed by
// downstream renderers. Keys are "field" for contract fields and "role.field"
// for party fields.
type LedgerEntry struct {
	Current   string `json:"current,omitempty"`
	Validated bool   `json:"validated"`
	Source    string `json:"source,omitempty"`
}

// Event is one entry of the append-only session history.
type Event struct {
	TS         time.Time `json:"ts"`
	Type       string    `json:"type"`
	Key        string    `json:"key,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Role       string    `json:"role,omitempty"`
	Roles      []string  `json:"roles,omitempty"`
	Value      string    `json:"value,omitempty"`
	Normalized string    `json:"normalized,omitempty"`
	Valid      bool      `json:"valid"`
	Source     string    `json:"source,omitempty"`
	State      string    `json:"state,omitempty"`
}

// Progress holds aggregated fill counters surfaced to clients.
type Progress struct {
	RequiredTotal  int `json:"required_total"`
	RequiredFilled int `json:"required_filled"`
}

// Session is the unit of concurrency control: one multi-party contract
// drafting record. All mutation happens inside a guarded transaction.
type Session struct {
	ID        string `json:"session_id"`
	CreatorID string `json:"creator_user_id,omitempty"`

	// RoleOwners maps role name to the identity that claimed it.
	RoleOwners map[string]string `json:"role_owners"`

	// RequiredRoles is set from category metadata when the category is chosen.
	RequiredRoles []string `json:"required_roles"`

	UpdatedAt time.Time `json:"updated_at"`

	Locale     string `json:"locale,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`

	// Role and PersonType are the current editing context of the caller, not
	// an ownership record.
	Role       string `json:"role,omitempty"`
	PersonType string `json:"person_type,omitempty"`

	// PartyTypes maps role name to its declared person type
	// (e.g. {"lessor": "company", "lessee": "individual"}).
	PartyTypes map[string]string `json:"party_types"`

	State State `json:"state"`

	// PartyFields is role -> field -> state; ContractFields covers shared fields.
	PartyFields    map[string]map[string]*FieldState `json:"party_fields"`
	ContractFields map[string]*FieldState            `json:"contract_fields"`

	CanBuildContract bool `json:"can_build_contract"`

	// Signatures maps role name to whether its owner has signed.
	Signatures map[string]bool `json:"signatures"`

	History []Event `json:"history,omitempty"`

	Progress Progress `json:"progress"`

	AllData map[string]*LedgerEntry `json:"all_data"`

	FillingMode FillingMode `json:"filling_mode"`
}

// New returns an idle session owned by nobody, created by creatorID.
func New(id string, creatorID string) *Session {
	return &Session{
		ID:             id,
		CreatorID:      creatorID,
		RoleOwners:     map[string]string{},
		RequiredRoles:  []string{},
		UpdatedAt:      time.Now().UTC(),
		Locale:         "uk",
		PartyTypes:     map[string]string{},
		State:          StateIdle,
		PartyFields:    map[string]map[string]*FieldState{},
		ContractFields: map[string]*FieldState{},
		Signatures:     map[string]bool{},
		AllData:        map[string]*LedgerEntry{},
		FillingMode:    FillingModePartial,
	}
}

// IsFullySigned reports whether every role in the party-type mapping has
// signed. This predicate, not State, is authoritative for blocking edits.
func (s *Session) IsFullySigned() bool {
	if len(s.PartyTypes) == 0 {
		return false
	}
	for role := range s.PartyTypes {
		if !s.Signatures[role] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no field value has ever been recorded.
func (s *Session) IsEmpty() bool {
	return len(s.AllData) == 0
}

// RolesOwnedBy returns the roles claimed by the given identity.
func (s *Session) RolesOwnedBy(identity string) []string {
	if identity == "" {
		return nil
	}
	var roles []string
	for role, owner := range s.RoleOwners {
		if owner == identity {
			roles = append(roles, role)
		}
	}
	return roles
}

// Participants returns all identities referenced by the session: role owners
// plus the creator. Used to maintain the per-identity store index.
func (s *Session) Participants() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, owner := range s.RoleOwners {
		if owner == "" {
			continue
		}
		if _, ok := seen[owner]; !ok {
			seen[owner] = struct{}{}
			out = append(out, owner)
		}
	}
	if s.CreatorID != "" {
		if _, ok := seen[s.CreatorID]; !ok {
			out = append(out, s.CreatorID)
		}
	}
	return out
}

// Touch advances the update timestamp that drives TTL computation.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendEvent adds an entry to the append-only history log.
func (s *Session) AppendEvent(evt Event) {
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	s.History = append(s.History, evt)
}
