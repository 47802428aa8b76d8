package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles simulation session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	options     []engine.Option
	mu          sync.RWMutex
}

// NewManager creates a new session manager. opts are applied to every
// simulation it builds.
func NewManager(opts ...engine.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		options:  opts,
	}
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...engine.Option) *Manager {
	m := NewManager(opts...)
	m.persistence = persistence
	return m
}

// Create builds a simulation for config and seed and registers it. An empty
// id gets a generated one.
func (m *Manager) Create(id, configID string, config *engine.SimulationConfig, seed int64) (*service.Session, error) {
	if strings.ContainsAny(id, `/\. `) {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	}
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	sess, err := service.NewSession(id, configID, config, seed, m.options...)
	if err != nil {
		return nil, err
	}
	m.sessions[strings.ToLower(id)] = sess

	if m.persistence != nil {
		if err := m.persistence.Save(sess); err != nil {
			log.Printf("Warning: Failed to persist session %s: %v", id, err)
		}
	}

	return sess, nil
}

// Get retrieves a session by ID (case-insensitive), falling back to persistence
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return sess, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		sess, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// another caller may have loaded it meanwhile
		if cached, ok := m.sessions[strings.ToLower(id)]; ok {
			return cached, nil
		}
		m.sessions[strings.ToLower(id)] = sess
		return sess, nil
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.SimulationConfig, seed int64) (*service.Session, error) {
	sess, err := m.Get(id)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config, seed)
	}
	return nil, err
}

// List returns all in-memory sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	_, inMemory := m.sessions[lowerID]
	delete(m.sessions, lowerID)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory removes a session from memory only
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// Save writes one session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(sess)
}

// CleanupExpiredSessions removes sessions that haven't been accessed in maxAge
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, sess := range m.sessions {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID returns an unused random 4-character hex ID; m.mu must be held
func (m *Manager) generateSessionID() string {
	for {
		b := make([]byte, 2)
		rand.Read(b)
		id := hex.EncodeToString(b)
		if !m.sessionExists(id) {
			return id
		}
	}
}

func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if m.sessionExists(id) {
			continue
		}
		sess, err := m.persistence.Load(id)
		if err != nil {
			log.Printf("Warning: Failed to load persisted session %s: %v", id, err)
			continue
		}
		m.sessions[strings.ToLower(id)] = sess
		loaded++
	}

	if loaded > 0 {
		log.Printf("Loaded %d persisted sessions from storage", loaded)
	}
	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, sess := range m.List() {
		if err := m.persistence.Save(sess); err != nil {
			log.Printf("Warning: Failed to save session %s: %v", sess.ID, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
