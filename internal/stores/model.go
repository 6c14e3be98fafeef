package stores

import "time"

// Store is a connected merchant account. Every entity row in the system is
// scoped by the store's internal id.
type Store struct {
	ID             int64      `json:"id" db:"id"`
	Domain         string     `json:"domain" db:"domain"`
	TokenSealed    []byte     `json:"-" db:"access_token_sealed"`
	Scope          string     `json:"scope" db:"scope"`
	Plan           string     `json:"plan" db:"plan"`
	InstalledAt    time.Time  `json:"installed_at" db:"installed_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty" db:"disconnected_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Connected reports whether the store currently has an active installation.
func (s *Store) Connected() bool {
	return s != nil && s.DisconnectedAt == nil
}
