package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sparkmatch/backend/internal/models"
)

// Snapshot is the serialized session state written after every mutation and
// restored once at process start.
type Snapshot struct {
	User          *models.UserProfile `json:"user"`
	RemoteRevoked bool                `json:"remoteRevoked"`
}

// SnapshotStore persists the session snapshot across process restarts.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}

// FileSnapshotStore keeps the snapshot in a single JSON file, the device's
// persisted-state key.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore constructs a snapshot store writing to the given path.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Load reads the snapshot file. A missing file is not an error: it reports
// ok=false, the first-run case.
func (f *FileSnapshotStore) Load(_ context.Context) (Snapshot, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot file: %w", err)
	}

	return snap, true, nil
}

// Save writes the snapshot atomically via a temp file and rename, so a crash
// mid-write never leaves a torn snapshot behind.
func (f *FileSnapshotStore) Save(_ context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot file: %w", err)
	}

	return nil
}

// discardSnapshotStore drops snapshots; used when persistence is not configured.
type discardSnapshotStore struct{}

func (discardSnapshotStore) Load(context.Context) (Snapshot, bool, error) { return Snapshot{}, false, nil }
func (discardSnapshotStore) Save(context.Context, Snapshot) error         { return nil }

var _ SnapshotStore = (*FileSnapshotStore)(nil)
