package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
)

// FilePersistence implements SessionPersistence using one JSON file per session
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
	options       []engine.Option
}

// NewFilePersistence creates a new file-based session persistence layer.
// opts are applied to every simulation rebuilt by Load and should match
// the ones given to the session manager.
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager, opts ...engine.Option) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
		options:       opts,
	}, nil
}

// Save persists a session to a JSON file
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	configID := session.ConfigID
	if configID == "" {
		configID = fp.getConfigIDFromName(session.Config.Name)
	}

	status := session.Engine.Status()
	data := PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		Seed:           session.Engine.Seed(),
		Tick:           status.Tick,
		State:          status.State,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Config:         session.Config,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := os.WriteFile(fp.getFilePath(session.ID), jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load rebuilds a session from its JSON file and replays it to the saved tick
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	filePath := fp.getFilePath(id)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	// the inline copy wins so edits to the config file cannot change a replay
	cfg := data.Config
	if cfg == nil {
		if cfg, err = fp.configManager.LoadConfig(data.ConfigName); err != nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
		}
	}

	sess, err := service.NewSession(data.ID, data.ConfigName, cfg, data.Seed, fp.options...)
	if err != nil {
		return nil, err
	}
	if replayed := sess.Engine.Advance(data.Tick); replayed != data.Tick {
		return nil, fmt.Errorf("failed to replay session %s: reached tick %d of %d", data.ID, replayed, data.Tick)
	}
	sess.DrainEvents()

	sess.CreatedAt = data.CreatedAt
	sess.LastAccessedAt = data.LastAccessedAt
	return sess, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", id))
}

// getConfigIDFromName maps a display name back to its config id
func (fp *FilePersistence) getConfigIDFromName(displayName string) string {
	configs, err := fp.configManager.ListConfigs()
	if err == nil {
		for _, config := range configs {
			if config.Name == displayName {
				return config.ConfigID
			}
		}
	}
	return displayName
}
