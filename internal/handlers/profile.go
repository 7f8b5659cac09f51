package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sparkmatch/backend/internal/logging"
	"github.com/sparkmatch/backend/internal/media"
	"github.com/sparkmatch/backend/internal/models"
)

const maxUploadMemory = 32 << 20

// ProfileHandler serves the profile screen: the current profile plus the two
// media upload flows.
type ProfileHandler struct {
	Sessions SessionStore
	Media    MediaUploader
	Uploads  UploadQueue
}

// Get handles GET /api/v1/profile requests.
func (h ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	state, err := h.Sessions.Snapshot()
	if err != nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "session restoring"})
		return
	}
	if state.User == nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": state.User})
}

// UploadImage handles POST /api/v1/profile/image: the image flow runs
// synchronously and responds with the updated profile.
func (h ProfileHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media pipeline unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media pipeline unavailable"})
		return
	}

	file, header, err := formFile(r, "image")
	if err != nil {
		logger.Warn("invalid image upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "image file is required"})
		return
	}
	defer file.Close()

	var status string
	updated, err := h.Media.UploadProfileImage(ctx, header.Filename, file, header.Size, func(msg string) {
		status = msg
	})
	if err != nil {
		logger.Error("profile image upload failed", "error", err)
		respondJSON(ctx, w, uploadErrorStatus(err), map[string]string{"error": status})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": updated, "status": status})
}

// UploadVideo handles POST /api/v1/profile/video: the picked video is spooled
// to disk and handed to the upload queue, which runs the full pipeline off the
// request path.
func (h ProfileHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Uploads == nil {
		logger.Error("upload queue unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "upload queue unavailable"})
		return
	}

	state, err := h.Sessions.Snapshot()
	if err != nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "session restoring"})
		return
	}
	if state.User == nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}

	file, header, err := formFile(r, "video")
	if err != nil {
		logger.Warn("invalid video upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "video file is required"})
		return
	}
	defer file.Close()

	spooled, err := spoolUpload(file)
	if err != nil {
		logger.Error("spool video upload", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "error uploading"})
		return
	}

	task := models.UploadTask{
		ID:         uuid.NewString(),
		AccountID:  state.User.ID,
		Kind:       models.MediaKindVideo,
		SourcePath: spooled,
		FileName:   filepath.Base(header.Filename),
	}

	if err := h.Uploads.Enqueue(ctx, task); err != nil {
		os.Remove(spooled)
		logger.Error("enqueue video upload", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "error uploading"})
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, map[string]string{"taskId": task.ID})
}

func formFile(r *http.Request, field string) (io.ReadCloser, *multipartHeader, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	return file, &multipartHeader{Filename: header.Filename, Size: header.Size}, nil
}

type multipartHeader struct {
	Filename string
	Size     int64
}

func spoolUpload(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*.mp4")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func uploadErrorStatus(err error) int {
	if errors.Is(err, media.ErrNoAccount) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
