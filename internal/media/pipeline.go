package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sparkmatch/backend/internal/logging"
	"github.com/sparkmatch/backend/internal/models"
	"github.com/sparkmatch/backend/internal/session"
)

// Remote path roles, namespaced by account identifier.
const (
	profileImagePrefix = "profileImages"
	recordingPrefix    = "screenRecordings"
	thumbnailPrefix    = "screenRecordingThumbnails"
)

// ObjectStore captures the binary-object operations the pipeline needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, progress func(pct int)) (string, error)
	Delete(ctx context.Context, key string) error
}

// ProfileMerger applies non-destructive partial writes to profile documents.
type ProfileMerger interface {
	Merge(ctx context.Context, uid string, patch models.ProfilePatch) error
}

// SessionStore is the slice of the session store the pipeline reads the
// current account from and reflects committed media fields into.
type SessionStore interface {
	Snapshot() (session.State, error)
	UpdateUser(profile *models.UserProfile)
}

// StatusFunc receives incremental user-facing status text for an upload.
type StatusFunc func(msg string)

// PipelineConfig controls optional pipeline behaviour.
type PipelineConfig struct {
	// DisableThumbnails skips thumbnail generation entirely; the raw video is
	// shown directly. Used on hosts without ffmpeg.
	DisableThumbnails bool
}

// Pipeline turns a locally picked image or video into a durable remote object
// plus profile-document fields. Each completed remote object is recorded so a
// later step's failure can delete the orphans it would otherwise leave behind.
type Pipeline struct {
	objects  ObjectStore
	profiles ProfileMerger
	sessions SessionStore
	thumbs   Thumbnailer
	cfg      PipelineConfig
	logger   *slog.Logger

	NowFunc func() time.Time
}

// NewPipeline wires the pipeline to its collaborators.
func NewPipeline(objects ObjectStore, profiles ProfileMerger, sessions SessionStore, thumbs Thumbnailer, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if objects == nil {
		panic("media: object store must not be nil")
	}
	if profiles == nil {
		panic("media: profile merger must not be nil")
	}
	if sessions == nil {
		panic("media: session store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		objects:  objects,
		profiles: profiles,
		sessions: sessions,
		thumbs:   thumbs,
		cfg:      cfg,
		logger:   logger,
	}
}

// UploadProfileImage uploads a picked image under the account's image prefix,
// merges the resulting URL into the profile document, and reflects it into the
// session. The remote key keeps the original filename.
func (p *Pipeline) UploadProfileImage(ctx context.Context, fileName string, r io.Reader, size int64, status StatusFunc) (models.UserProfile, error) {
	ctx, op := logging.StartOp(ctx, "media.upload_image")
	defer op.End()

	user, err := p.currentUser(status)
	if err != nil {
		return models.UserProfile{}, err
	}

	key := path.Join(profileImagePrefix, user.ID, filepath.Base(fileName))

	emit(status, "Uploading image...")
	url, err := p.objects.Upload(ctx, key, r, size, nil)
	if err != nil {
		emit(status, "error uploading")
		return models.UserProfile{}, fmt.Errorf("upload profile image: %w", err)
	}

	saga := p.newSaga(key)

	if err := p.profiles.Merge(ctx, user.ID, models.ProfilePatch{ProfileImage: &url}); err != nil {
		saga.compensate()
		emit(status, "error uploading")
		return models.UserProfile{}, fmt.Errorf("merge profile image: %w", err)
	}

	updated := user
	updated.ProfileImage = url
	p.sessions.UpdateUser(&updated)

	emit(status, "Upload complete")
	return updated, nil
}

// UploadScreenRecording uploads a picked video under a timestamp-generated
// filename, produces and uploads a still-frame thumbnail unless disabled,
// merges the URLs plus the completion timestamp into the profile document, and
// reflects the result into the session. Progress is surfaced as status text.
func (p *Pipeline) UploadScreenRecording(ctx context.Context, videoPath string, status StatusFunc) (models.UserProfile, error) {
	ctx, op := logging.StartOp(ctx, "media.upload_video")
	defer op.End()

	user, err := p.currentUser(status)
	if err != nil {
		return models.UserProfile{}, err
	}

	src, err := os.Open(videoPath)
	if err != nil {
		emit(status, "error uploading")
		return models.UserProfile{}, fmt.Errorf("open video: %w", err)
	}
	defer src.Close()

	var size int64
	if fi, err := src.Stat(); err == nil {
		size = fi.Size()
	}

	// Timestamp filenames keep successive uploads from colliding.
	base := fmt.Sprintf("%d", p.now().UnixMilli())
	fileName := base + ".mp4"
	key := path.Join(recordingPrefix, user.ID, fileName)

	videoURL, err := p.objects.Upload(ctx, key, src, size, func(pct int) {
		emit(status, fmt.Sprintf("Uploading %d%%", pct))
	})
	if err != nil {
		emit(status, "error uploading")
		return models.UserProfile{}, fmt.Errorf("upload video: %w", err)
	}

	saga := p.newSaga(key)

	var thumbURL string
	if !p.cfg.DisableThumbnails {
		emit(status, "Processing thumbnail...")

		thumbURL, err = p.uploadThumbnail(ctx, videoPath, user.ID, base)
		if err != nil {
			saga.compensate()
			emit(status, "error uploading")
			return models.UserProfile{}, err
		}
		saga.record(path.Join(thumbnailPrefix, user.ID, base+".jpg"))
	}

	// Completion timestamp, taken after the remote side acknowledged the upload.
	uploadedAt := p.now()
	patch := models.ProfilePatch{
		ScreenRecording:           &videoURL,
		ScreenRecordingFileName:   &fileName,
		ScreenRecordingUploadedAt: &uploadedAt,
	}
	if thumbURL != "" {
		patch.ScreenRecordingThumbnail = &thumbURL
	}

	if err := p.profiles.Merge(ctx, user.ID, patch); err != nil {
		saga.compensate()
		emit(status, "error uploading")
		return models.UserProfile{}, fmt.Errorf("merge screen recording: %w", err)
	}

	updated := user
	updated.ScreenRecording = videoURL
	updated.ScreenRecordingFileName = fileName
	updated.ScreenRecordingUploadedAt = &uploadedAt
	if thumbURL != "" {
		updated.ScreenRecordingThumbnail = thumbURL
	}
	p.sessions.UpdateUser(&updated)

	emit(status, "Upload complete")
	return updated, nil
}

func (p *Pipeline) uploadThumbnail(ctx context.Context, videoPath, uid, base string) (string, error) {
	if p.thumbs == nil {
		return "", ErrThumbnailerUnavailable
	}

	thumbPath, err := p.thumbs.Generate(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("generate thumbnail: %w", err)
	}
	defer os.Remove(thumbPath)

	thumb, err := os.Open(thumbPath)
	if err != nil {
		return "", fmt.Errorf("open thumbnail: %w", err)
	}
	defer thumb.Close()

	var size int64
	if fi, err := thumb.Stat(); err == nil {
		size = fi.Size()
	}

	key := path.Join(thumbnailPrefix, uid, base+".jpg")
	url, err := p.objects.Upload(ctx, key, thumb, size, nil)
	if err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}

	return url, nil
}

func (p *Pipeline) currentUser(status StatusFunc) (models.UserProfile, error) {
	state, err := p.sessions.Snapshot()
	if err != nil {
		emit(status, "error uploading")
		return models.UserProfile{}, err
	}
	if state.User == nil {
		emit(status, "error uploading")
		return models.UserProfile{}, ErrNoAccount
	}
	return *state.User, nil
}

func (p *Pipeline) now() time.Time {
	if p.NowFunc != nil {
		return p.NowFunc()
	}
	return time.Now().UTC()
}

func emit(status StatusFunc, msg string) {
	if status != nil {
		status(msg)
	}
}

// saga tracks remote objects committed so far and deletes them when a later
// step fails, so a failed flow leaves no orphans behind.
type saga struct {
	objects ObjectStore
	logger  *slog.Logger
	keys    []string
}

func (p *Pipeline) newSaga(keys ...string) *saga {
	return &saga{objects: p.objects, logger: p.logger, keys: keys}
}

func (s *saga) record(key string) {
	s.keys = append(s.keys, key)
}

func (s *saga) compensate() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range s.keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.Error("delete orphaned upload", "key", key, "error", err)
		}
	}
}
