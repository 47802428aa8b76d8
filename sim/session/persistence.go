package session

import (
	"time"

	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the JSON document written per session. Config is
// kept inline so sessions created from configs that were never saved to the
// config directory can still be restored.
type PersistedSessionData struct {
	ID             string                   `json:"id"`
	ConfigName     string                   `json:"config_name"`
	Seed           int64                    `json:"seed"`
	Tick           int                      `json:"tick"`
	State          engine.State             `json:"state"`
	CreatedAt      time.Time                `json:"created_at"`
	LastAccessedAt time.Time                `json:"last_accessed_at"`
	Config         *engine.SimulationConfig `json:"config,omitempty"`
}
