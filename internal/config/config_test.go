package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppPort)
	}
	if cfg.MigrationDir != "migrations" {
		t.Fatalf("expected default migration dir, got %q", cfg.MigrationDir)
	}
	if cfg.FeedCacheTTL != time.Minute {
		t.Fatalf("expected default feed TTL, got %v", cfg.FeedCacheTTL)
	}
	if cfg.UploadWorkers != 2 {
		t.Fatalf("expected default worker count, got %d", cfg.UploadWorkers)
	}
	if cfg.ObjectStore.Bucket != "sparkmatch-media" {
		t.Fatalf("expected default bucket, got %q", cfg.ObjectStore.Bucket)
	}
	if cfg.ObjectStore.DisableThumbnails {
		t.Fatal("thumbnails should be enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SPARKMATCH_PORT", "9100")
	t.Setenv("SPARKMATCH_FEED_CACHE_TTL", "5m")
	t.Setenv("SPARKMATCH_FFMPEG_TIMEOUT", "45s")
	t.Setenv("SPARKMATCH_DISABLE_THUMBNAILS", "true")
	t.Setenv("SPARKMATCH_MEDIA_BUCKET", "custom-media")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9100 {
		t.Fatalf("expected overridden port, got %d", cfg.AppPort)
	}
	if cfg.FeedCacheTTL != 5*time.Minute {
		t.Fatalf("expected overridden TTL, got %v", cfg.FeedCacheTTL)
	}
	if cfg.FFmpegTimeout != 45*time.Second {
		t.Fatalf("expected overridden ffmpeg timeout, got %v", cfg.FFmpegTimeout)
	}
	if !cfg.ObjectStore.DisableThumbnails {
		t.Fatal("expected thumbnails disabled")
	}
	if cfg.ObjectStore.Bucket != "custom-media" {
		t.Fatalf("expected overridden bucket, got %q", cfg.ObjectStore.Bucket)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SPARKMATCH_PORT", "not-a-number")
	t.Setenv("SPARKMATCH_FEED_CACHE_TTL", "soon")
	t.Setenv("SPARKMATCH_DISABLE_THUMBNAILS", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("malformed port should fall back, got %d", cfg.AppPort)
	}
	if cfg.FeedCacheTTL != time.Minute {
		t.Fatalf("malformed TTL should fall back, got %v", cfg.FeedCacheTTL)
	}
	if cfg.ObjectStore.DisableThumbnails {
		t.Fatal("malformed bool should fall back to false")
	}
}
