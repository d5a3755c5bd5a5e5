package gcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

func TestPublicURLPrefersCDN(t *testing.T) {
	got := publicURL(MediaConfig{CDNDomain: "media.example.com"}, "videos", "/lessons/c/1.mp4")
	if got != "https://media.example.com/lessons/c/1.mp4" {
		t.Fatalf("url: got=%q", got)
	}
}

func TestPublicURLEmulator(t *testing.T) {
	got := publicURL(MediaConfig{EmulatorHost: "http://fake-gcs:4443/"}, "videos", "lessons/c/1.mp4")
	want := "http://fake-gcs:4443/storage/v1/b/videos/o/lessons%2Fc%2F1.mp4?alt=media"
	if got != want {
		t.Fatalf("url: want=%q got=%q", want, got)
	}
}

func TestPublicURLDefault(t *testing.T) {
	got := publicURL(MediaConfig{}, "docs", "lessons/c/1.pdf")
	if !strings.HasPrefix(got, "https://storage.googleapis.com/docs/") {
		t.Fatalf("url: got=%q", got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"lessons/a/b.MP4":     "video/mp4",
		"lessons/a/b.pdf?x=1": "application/pdf",
		"lessons/a/b.unknown": "",
		"lessons/a/b.pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
	for key, want := range cases {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("%s: want=%q got=%q", key, want, got)
		}
	}
}

func TestNewMediaStoreDisabledWithoutBuckets(t *testing.T) {
	store, err := NewMediaStore(logger.Nop(), MediaConfig{VideoBucket: "videos"})
	if err != nil {
		t.Fatalf("NewMediaStore: %v", err)
	}
	_, err = store.Upload(dbctx.New(context.Background()), MediaKindVideo, "k.mp4", strings.NewReader("x"))
	if !errors.Is(err, ErrMediaDisabled) {
		t.Fatalf("Upload: want ErrMediaDisabled got %v", err)
	}
}

func TestCredentialOptions(t *testing.T) {
	if got := credentialOptions("  "); got != nil {
		t.Fatalf("blank: want nil got %d options", len(got))
	}
	if got := credentialOptions(`{"type":"service_account"}`); len(got) != 1 {
		t.Fatalf("json: want 1 option got %d", len(got))
	}
	if got := credentialOptions("/etc/gcp/key.json"); len(got) != 1 {
		t.Fatalf("file: want 1 option got %d", len(got))
	}
}
