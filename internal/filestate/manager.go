package filestate

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"marketing-insights-backend/internal/model"
)

// SavedSnapshot is one persisted sheet snapshot: when it was fetched and
// the header-keyed rows it held.
type SavedSnapshot struct {
	FetchedAt int64            `json:"fetched_at"`
	Rows      []model.SheetRow `json:"rows"`
}

// SnapshotState maps "spreadsheetID/sheetName" keys to saved snapshots.
type SnapshotState map[string]SavedSnapshot

// Manager persists sheet snapshots across restarts so the service comes
// back up with a warm cache instead of re-reading every spreadsheet.
type Manager interface {
	LoadState() (SnapshotState, error)
	SaveState(state SnapshotState) error
	GetStateFilePath() string
}

type snapshotStateManager struct {
	filePath string
	mu       sync.RWMutex
}

func NewManager(filePath string) Manager {
	return &snapshotStateManager{
		filePath: filePath,
	}
}

func (m *snapshotStateManager) LoadState() (SnapshotState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", m.filePath).Msg("Snapshot state file not found, starting fresh.")
			return make(SnapshotState), nil
		}
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to read snapshot state file")
		return nil, err
	}

	if len(data) == 0 {
		log.Warn().Str("file", m.filePath).Msg("Snapshot state file is empty, starting fresh.")
		return make(SnapshotState), nil
	}
	var state SnapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal snapshot state file")
		return nil, err
	}

	log.Debug().Str("file", m.filePath).Int("snapshots", len(state)).Msg("Loaded snapshot state")
	return state, nil
}

func (m *snapshotStateManager) SaveState(state SnapshotState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot state")
		return err
	}

	tempFilePath := m.filePath + ".tmp"
	err = os.WriteFile(tempFilePath, data, 0644)
	if err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary snapshot state file")
		return err
	}

	err = os.Rename(tempFilePath, m.filePath)
	if err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", m.filePath).Msg("Failed to rename snapshot state file")
		// Attempt cleanup
		_ = os.Remove(tempFilePath)
		return err
	}
	log.Debug().Str("file", m.filePath).Int("snapshots", len(state)).Msg("Saved snapshot state")
	return nil
}

func (m *snapshotStateManager) GetStateFilePath() string {
	return m.filePath
}
