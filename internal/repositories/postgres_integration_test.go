package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkmatch/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresAccountRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresAccountRepository(testPool)

	account := models.Account{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	dup := models.Account{
		ID:        uuid.NewString(),
		Email:     account.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, account.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}

	if fetched.ID != account.ID || fetched.Email != account.Email || fetched.Password != account.Password {
		t.Fatalf("unexpected account fetched: %+v", fetched)
	}

	if _, err := repo.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing email, got %v", err)
	}
}

func TestPostgresProfileRepository_MergeCreatesMissingDocument(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresProfileRepository(testPool)
	uid := uuid.NewString()

	email := "alice@example.com"
	firstName := "Alice"
	if err := repo.Merge(ctx, uid, models.ProfilePatch{Email: &email, FirstName: &firstName}); err != nil {
		t.Fatalf("merge into missing document: %v", err)
	}

	profile, err := repo.Get(ctx, uid)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.ID != uid || profile.Email != email || profile.FirstName != firstName {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.BirthDate != "" || profile.ProfileImage != "" {
		t.Fatalf("unmentioned fields must stay empty, got %+v", profile)
	}
}

func TestPostgresProfileRepository_MergePreservesUnmentionedFields(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresProfileRepository(testPool)
	uid := uuid.NewString()

	email := "alice@example.com"
	firstName := "Alice"
	image := "https://cdn.example.com/profileImages/" + uid + "/me.png"
	if err := repo.Merge(ctx, uid, models.ProfilePatch{Email: &email, FirstName: &firstName, ProfileImage: &image}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	recording := "https://cdn.example.com/screenRecordings/" + uid + "/1700000000000.mp4"
	fileName := "1700000000000.mp4"
	uploadedAt := time.Now().UTC().Truncate(time.Millisecond)
	patch := models.ProfilePatch{
		ScreenRecording:           &recording,
		ScreenRecordingFileName:   &fileName,
		ScreenRecordingUploadedAt: &uploadedAt,
	}
	if err := repo.Merge(ctx, uid, patch); err != nil {
		t.Fatalf("merge recording fields: %v", err)
	}

	profile, err := repo.Get(ctx, uid)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}

	if profile.Email != email || profile.FirstName != firstName || profile.ProfileImage != image {
		t.Fatalf("expected earlier fields preserved, got %+v", profile)
	}
	if profile.ScreenRecording != recording || profile.ScreenRecordingFileName != fileName {
		t.Fatalf("expected recording fields merged, got %+v", profile)
	}
	if profile.ScreenRecordingUploadedAt == nil || !profile.ScreenRecordingUploadedAt.Equal(uploadedAt) {
		t.Fatalf("expected upload timestamp %v, got %v", uploadedAt, profile.ScreenRecordingUploadedAt)
	}
}

func TestPostgresProfileRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresProfileRepository(testPool)

	if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresProfileRepository_List(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresProfileRepository(testPool)

	uids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for i, uid := range uids {
		name := fmt.Sprintf("Member %d", i)
		if err := repo.Merge(ctx, uid, models.ProfilePatch{FirstName: &name}); err != nil {
			t.Fatalf("seed profile %d: %v", i, err)
		}
	}

	profiles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != len(uids) {
		t.Fatalf("expected %d profiles, got %d", len(uids), len(profiles))
	}

	seen := make(map[string]bool, len(profiles))
	for _, profile := range profiles {
		seen[profile.ID] = true
	}
	for _, uid := range uids {
		if !seen[uid] {
			t.Fatalf("expected profile %s in listing", uid)
		}
	}
}

func TestPostgresDeviceSessionRepository_SaveAndRevoke(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresDeviceSessionRepository(testPool)
	accountID := uuid.NewString()

	first := models.DeviceSession{Token: uuid.NewString(), AccountID: accountID, IssuedAt: time.Now().UTC()}
	second := models.DeviceSession{Token: uuid.NewString(), AccountID: accountID, IssuedAt: time.Now().UTC()}

	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save first session: %v", err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save second session: %v", err)
	}

	// Saving the same token again refreshes instead of conflicting.
	first.IssuedAt = time.Now().UTC().Add(time.Minute)
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("refresh session: %v", err)
	}

	if err := repo.DeleteForAccount(ctx, accountID); err != nil {
		t.Fatalf("revoke sessions: %v", err)
	}

	if got := countDeviceSessions(t, accountID); got != 0 {
		t.Fatalf("expected all sessions revoked, %d remain", got)
	}

	// Revoking again deletes nothing and is still not an error.
	if err := repo.DeleteForAccount(ctx, accountID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func countDeviceSessions(t *testing.T, accountID string) int {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	var count int
	row := conn.QueryRow(ctx, "SELECT count(*) FROM device_sessions WHERE account_id = $1", accountID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return count
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE device_sessions, profiles, accounts CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
