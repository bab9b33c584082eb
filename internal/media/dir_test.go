package media

import (
	"context"
	"strings"
	"testing"
)

func TestDirUploadAndDownloadURL(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	url, err := d.Upload(ctx, []byte("jpegbytes"), "message_images/pic.png")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "message_images/pic.png") {
		t.Errorf("url = %q", url)
	}

	got, err := d.DownloadURL(ctx, "message_images/pic.png")
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if got != url {
		t.Errorf("DownloadURL = %q, want %q", got, url)
	}
}

func TestDirDownloadURLAbsent(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.DownloadURL(context.Background(), "message_images/nope.png"); err == nil {
		t.Error("DownloadURL() expected error for absent object")
	}
}

func TestNewObjectPaths(t *testing.T) {
	photo := NewPhotoPath()
	if !strings.HasPrefix(photo, "message_images/") || !strings.HasSuffix(photo, ".png") {
		t.Errorf("photo path = %q", photo)
	}
	video := NewVideoPath()
	if !strings.HasPrefix(video, "message_videos/") || !strings.HasSuffix(video, ".mov") {
		t.Errorf("video path = %q", video)
	}
	if NewPhotoPath() == photo {
		t.Error("photo paths should be unique")
	}
	if ProfilePicturePath("u1_profile_pic.png") != "images/u1_profile_pic.png" {
		t.Error("profile picture path mismatch")
	}
}
