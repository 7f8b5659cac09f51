package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sparkmatch/backend/internal/models"
	"github.com/sparkmatch/backend/internal/session"
)

type fakeObjectStore struct {
	mu        sync.Mutex
	uploads   []string
	deleted   []string
	failKeys  map[string]error
	reportPct []int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{failKeys: make(map[string]error)}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, r io.Reader, _ int64, progress func(pct int)) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failKeys[key]; ok {
		return "", err
	}
	if progress != nil {
		for _, pct := range f.reportPct {
			progress(pct)
		}
	}
	f.uploads = append(f.uploads, key)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeMerger struct {
	mu      sync.Mutex
	patches map[string][]models.ProfilePatch
	err     error
}

func newFakeMerger() *fakeMerger {
	return &fakeMerger{patches: make(map[string][]models.ProfilePatch)}
}

func (f *fakeMerger) Merge(_ context.Context, uid string, patch models.ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.patches[uid] = append(f.patches[uid], patch)
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	state   session.State
	updated *models.UserProfile
}

func (f *fakeSessions) Snapshot() (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeSessions) UpdateUser(profile *models.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = profile
}

type fakeThumbnailer struct {
	err error
}

func (f *fakeThumbnailer) Generate(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(os.TempDir(), "pipeline-test-thumb.jpg")
	if err := os.WriteFile(out, []byte("jpg"), 0o600); err != nil {
		return "", err
	}
	return out, nil
}

func signedInSessions(uid string) *fakeSessions {
	return &fakeSessions{state: session.State{User: &models.UserProfile{ID: uid, Email: uid + "@example.com"}}}
}

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.mp4")
	if err := os.WriteFile(path, []byte("not a real mp4"), 0o600); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestPipelineUploadProfileImage(t *testing.T) {
	objects := newFakeObjectStore()
	merger := newFakeMerger()
	sessions := signedInSessions("acct-1")
	pipeline := NewPipeline(objects, merger, sessions, nil, PipelineConfig{}, nil)

	var statuses []string
	updated, err := pipeline.UploadProfileImage(context.Background(), "/tmp/picked/me.png", strings.NewReader("png"), 3, func(msg string) {
		statuses = append(statuses, msg)
	})
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}

	wantKey := "profileImages/acct-1/me.png"
	if len(objects.uploads) != 1 || objects.uploads[0] != wantKey {
		t.Fatalf("expected upload key %q, got %v", wantKey, objects.uploads)
	}

	wantURL := "https://cdn.example.com/" + wantKey
	if updated.ProfileImage != wantURL {
		t.Fatalf("expected profile image %q, got %q", wantURL, updated.ProfileImage)
	}

	patches := merger.patches["acct-1"]
	if len(patches) != 1 || patches[0].ProfileImage == nil || *patches[0].ProfileImage != wantURL {
		t.Fatalf("expected a single profile-image merge, got %+v", patches)
	}
	if patches[0].Email != nil || patches[0].FirstName != nil {
		t.Fatalf("merge must not touch unrelated fields, got %+v", patches[0])
	}

	if sessions.updated == nil || sessions.updated.ProfileImage != wantURL {
		t.Fatalf("expected session to reflect the new image, got %+v", sessions.updated)
	}

	if len(statuses) == 0 || statuses[len(statuses)-1] != "Upload complete" {
		t.Fatalf("expected final status Upload complete, got %v", statuses)
	}
}

func TestPipelineUploadScreenRecording(t *testing.T) {
	objects := newFakeObjectStore()
	objects.reportPct = []int{12, 60, 99, 100}
	merger := newFakeMerger()
	sessions := signedInSessions("acct-1")
	pipeline := NewPipeline(objects, merger, sessions, &fakeThumbnailer{}, PipelineConfig{}, nil)

	picked := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	completed := picked.Add(42 * time.Second)
	clock := []time.Time{picked, completed}
	pipeline.NowFunc = func() time.Time {
		next := clock[0]
		if len(clock) > 1 {
			clock = clock[1:]
		}
		return next
	}

	var statuses []string
	updated, err := pipeline.UploadScreenRecording(context.Background(), writeTempVideo(t), func(msg string) {
		statuses = append(statuses, msg)
	})
	if err != nil {
		t.Fatalf("upload video: %v", err)
	}

	base := "1741944413000"
	videoKey := "screenRecordings/acct-1/" + base + ".mp4"
	thumbKey := "screenRecordingThumbnails/acct-1/" + base + ".jpg"
	if len(objects.uploads) != 2 || objects.uploads[0] != videoKey || objects.uploads[1] != thumbKey {
		t.Fatalf("expected keys %q and %q, got %v", videoKey, thumbKey, objects.uploads)
	}

	if updated.ScreenRecordingFileName != base+".mp4" {
		t.Fatalf("expected timestamp filename, got %q", updated.ScreenRecordingFileName)
	}
	if updated.ScreenRecordingUploadedAt == nil || !updated.ScreenRecordingUploadedAt.Equal(completed) {
		t.Fatalf("expected completion timestamp %v, got %v", completed, updated.ScreenRecordingUploadedAt)
	}
	if updated.ScreenRecording == "" || updated.ScreenRecordingThumbnail == "" {
		t.Fatalf("expected video and thumbnail URLs, got %+v", updated)
	}

	patches := merger.patches["acct-1"]
	if len(patches) != 1 || patches[0].ScreenRecording == nil || patches[0].ScreenRecordingThumbnail == nil {
		t.Fatalf("expected a single merge with both URLs, got %+v", patches)
	}

	var sawPct, sawComplete bool
	for _, msg := range statuses {
		if strings.HasPrefix(msg, "Uploading ") && strings.HasSuffix(msg, "%") {
			sawPct = true
		}
		if msg == "Upload complete" {
			sawComplete = true
		}
	}
	if !sawPct || !sawComplete {
		t.Fatalf("expected progress and completion statuses, got %v", statuses)
	}
}

func TestPipelineThumbnailFailureDeletesOrphanedVideo(t *testing.T) {
	objects := newFakeObjectStore()
	merger := newFakeMerger()
	sessions := signedInSessions("acct-1")
	pipeline := NewPipeline(objects, merger, sessions, &fakeThumbnailer{err: errors.New("ffmpeg crashed")}, PipelineConfig{}, nil)

	var statuses []string
	_, err := pipeline.UploadScreenRecording(context.Background(), writeTempVideo(t), func(msg string) {
		statuses = append(statuses, msg)
	})
	if err == nil {
		t.Fatal("expected thumbnail failure to surface")
	}

	if len(objects.deleted) != 1 || !strings.HasPrefix(objects.deleted[0], "screenRecordings/acct-1/") {
		t.Fatalf("expected the uploaded video to be deleted, got %v", objects.deleted)
	}
	if len(merger.patches["acct-1"]) != 0 {
		t.Fatalf("no merge should happen on failure, got %+v", merger.patches)
	}
	if sessions.updated != nil {
		t.Fatalf("session must not be updated on failure, got %+v", sessions.updated)
	}
	if len(statuses) == 0 || statuses[len(statuses)-1] != "error uploading" {
		t.Fatalf("expected final status error uploading, got %v", statuses)
	}
}

func TestPipelineMergeFailureDeletesOrphans(t *testing.T) {
	objects := newFakeObjectStore()
	merger := newFakeMerger()
	merger.err = errors.New("document store down")
	sessions := signedInSessions("acct-1")
	pipeline := NewPipeline(objects, merger, sessions, &fakeThumbnailer{}, PipelineConfig{}, nil)

	_, err := pipeline.UploadScreenRecording(context.Background(), writeTempVideo(t), nil)
	if err == nil {
		t.Fatal("expected merge failure to surface")
	}

	if len(objects.deleted) != 2 {
		t.Fatalf("expected video and thumbnail deleted, got %v", objects.deleted)
	}
}

func TestPipelineDisabledThumbnails(t *testing.T) {
	objects := newFakeObjectStore()
	merger := newFakeMerger()
	sessions := signedInSessions("acct-1")
	pipeline := NewPipeline(objects, merger, sessions, nil, PipelineConfig{DisableThumbnails: true}, nil)

	updated, err := pipeline.UploadScreenRecording(context.Background(), writeTempVideo(t), nil)
	if err != nil {
		t.Fatalf("upload video: %v", err)
	}

	if len(objects.uploads) != 1 {
		t.Fatalf("expected only the video upload, got %v", objects.uploads)
	}
	if updated.ScreenRecordingThumbnail != "" {
		t.Fatalf("no thumbnail URL expected, got %q", updated.ScreenRecordingThumbnail)
	}
	patches := merger.patches["acct-1"]
	if len(patches) != 1 || patches[0].ScreenRecordingThumbnail != nil {
		t.Fatalf("merge must not set a thumbnail, got %+v", patches)
	}
}

func TestPipelineRequiresAccount(t *testing.T) {
	pipeline := NewPipeline(newFakeObjectStore(), newFakeMerger(), &fakeSessions{}, nil, PipelineConfig{}, nil)

	_, err := pipeline.UploadProfileImage(context.Background(), "me.png", strings.NewReader("png"), 3, nil)
	if !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}
