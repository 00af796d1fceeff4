package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type principalKind uint8

const (
	principalNone principalKind = iota
	principalUser
	principalSystem
)

const (
	principalUserPrefix = "user:"
	principalSystemTag  = "system"
)

// Principal identifies who performed an action: a human user or the system
// itself (the recurring generation job). The zero value means "nobody" and
// is stored as NULL.
type Principal struct {
	kind   principalKind
	userID string
}

// Human returns the principal for an authenticated user.
func Human(userID string) Principal {
	return Principal{kind: principalUser, userID: userID}
}

// System is the principal recorded on everything the scheduler materializes.
var System = Principal{kind: principalSystem}

// IsZero reports whether no actor is recorded.
func (p Principal) IsZero() bool { return p.kind == principalNone }

// IsSystem reports whether the action was performed by the system.
func (p Principal) IsSystem() bool { return p.kind == principalSystem }

// UserID returns the user id and true for human principals.
func (p Principal) UserID() (string, bool) {
	if p.kind != principalUser {
		return "", false
	}
	return p.userID, true
}

// Is reports whether p is the given human user.
func (p Principal) Is(userID string) bool {
	id, ok := p.UserID()
	return ok && id == userID
}

func (p Principal) String() string {
	switch p.kind {
	case principalUser:
		return principalUserPrefix + p.userID
	case principalSystem:
		return principalSystemTag
	default:
		return ""
	}
}

// ParsePrincipal decodes the storage form produced by String.
func ParsePrincipal(s string) (Principal, error) {
	switch {
	case s == "":
		return Principal{}, nil
	case s == principalSystemTag:
		return System, nil
	case strings.HasPrefix(s, principalUserPrefix) && len(s) > len(principalUserPrefix):
		return Human(strings.TrimPrefix(s, principalUserPrefix)), nil
	default:
		return Principal{}, fmt.Errorf("invalid principal %q", s)
	}
}

// GormDataType tells gorm how to declare the column.
func (Principal) GormDataType() string { return "string" }

// Value implements driver.Valuer.
func (p Principal) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.String(), nil
}

// Scan implements sql.Scanner.
func (p *Principal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Principal{}
		return nil
	case string:
		parsed, err := ParsePrincipal(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		return p.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Principal", src)
	}
}

type principalJSON struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// MarshalJSON renders {"kind":"user","id":"..."} or {"kind":"system"}.
func (p Principal) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case principalUser:
		return json.Marshal(principalJSON{Kind: "user", ID: p.userID})
	case principalSystem:
		return json.Marshal(principalJSON{Kind: principalSystemTag})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts the MarshalJSON form.
func (p *Principal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Principal{}
		return nil
	}
	var raw principalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "user":
		if raw.ID == "" {
			return fmt.Errorf("user principal without id")
		}
		*p = Human(raw.ID)
	case principalSystemTag:
		*p = System
	default:
		return fmt.Errorf("unknown principal kind %q", raw.Kind)
	}
	return nil
}
