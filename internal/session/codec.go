package session

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Marshal serializes a session to its canonical JSON payload. Only canonical
// encodings are ever written; legacy shapes are accepted on decode only.
func Marshal(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal session")
	}
	return data, nil
}

// persistedSession mirrors Session plus the legacy keys historical payloads
// may still carry: "fields" (pre-split contract fields), "party_users" (old
// name for role_owners) and "user_id" (old name for the creator).
type persistedSession struct {
	ID        string `json:"session_id"`
	CreatorID string `json:"creator_user_id"`
	UserID    string `json:"user_id"`

	RoleOwners map[string]string `json:"role_owners"`
	PartyUsers map[string]string `json:"party_users"`

	RequiredRoles []string `json:"required_roles"`
	UpdatedAt     string   `json:"updated_at"`
	Locale        string   `json:"locale"`
	CategoryID    string   `json:"category_id"`
	TemplateID    string   `json:"template_id"`
	Role          string   `json:"role"`
	PersonType    string   `json:"person_type"`

	PartyTypes map[string]string `json:"party_types"`
	State      string            `json:"state"`

	PartyFields    map[string]map[string]persistedField `json:"party_fields"`
	ContractFields map[string]persistedField            `json:"contract_fields"`
	LegacyFields   map[string]persistedField            `json:"fields"`

	CanBuildContract bool            `json:"can_build_contract"`
	Signatures       map[string]bool `json:"signatures"`
	History          []Event         `json:"history"`
	Progress         Progress        `json:"progress"`

	AllData map[string]*LedgerEntry `json:"all_data"`

	FillingMode string `json:"filling_mode"`
}

// persistedField tolerates the historical boolean status encoding alongside
// the canonical string one.
type persistedField struct {
	Status json.RawMessage `json:"status"`
	Error  string          `json:"error"`
}

func (f persistedField) decode() *FieldState {
	return &FieldState{
		Status: decodeFieldStatus(f.Status, f.Error),
		Error:  f.Error,
	}
}

func decodeFieldStatus(raw json.RawMessage, errMsg string) FieldStatus {
	if len(raw) == 0 {
		return FieldStatusEmpty
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return FieldStatusOK
		}
		if errMsg != "" {
			return FieldStatusError
		}
		return FieldStatusEmpty
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch FieldStatus(s) {
		case FieldStatusOK, FieldStatusError, FieldStatusEmpty:
			return FieldStatus(s)
		}
	}

	return FieldStatusEmpty
}

// Unmarshal deserializes a persisted payload, normalizing legacy encodings.
func Unmarshal(data []byte) (*Session, error) {
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "unmarshal session")
	}
	if p.ID == "" {
		return nil, errors.New("unmarshal session: missing session_id")
	}

	s := New(p.ID, firstNonEmpty(p.CreatorID, p.UserID))

	if p.RoleOwners != nil {
		s.RoleOwners = p.RoleOwners
	} else if p.PartyUsers != nil {
		s.RoleOwners = p.PartyUsers
	}
	if p.RequiredRoles != nil {
		s.RequiredRoles = p.RequiredRoles
	}
	if p.Locale != "" {
		s.Locale = p.Locale
	}
	s.CategoryID = p.CategoryID
	s.TemplateID = p.TemplateID
	s.Role = p.Role
	s.PersonType = p.PersonType
	if p.PartyTypes != nil {
		s.PartyTypes = p.PartyTypes
	}
	s.State = ParseState(p.State)
	s.CanBuildContract = p.CanBuildContract
	if p.Signatures != nil {
		s.Signatures = p.Signatures
	}
	s.History = p.History
	s.Progress = p.Progress
	if p.AllData != nil {
		s.AllData = p.AllData
	}
	if p.FillingMode == string(FillingModeFull) {
		s.FillingMode = FillingModeFull
	}

	for role, fields := range p.PartyFields {
		decoded := make(map[string]*FieldState, len(fields))
		for name, f := range fields {
			decoded[name] = f.decode()
		}
		s.PartyFields[role] = decoded
	}

	contractFields := p.ContractFields
	if contractFields == nil {
		contractFields = p.LegacyFields
	}
	for name, f := range contractFields {
		s.ContractFields[name] = f.decode()
	}

	s.UpdatedAt = parseUpdatedAt(p.UpdatedAt)

	return s, nil
}

func parseUpdatedAt(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
