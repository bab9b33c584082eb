// Package media abstracts the external media storage collaborator used for
// photo and video messages. Uploads are not retried here; a failed upload
// aborts the message send.
package media

import (
	"context"

	"github.com/google/uuid"
)

// Uploader stores media bytes and resolves download URLs for them.
type Uploader interface {
	// Upload writes data at objectPath and returns its download URL.
	Upload(ctx context.Context, data []byte, objectPath string) (string, error)

	// DownloadURL resolves the download URL for an already stored object.
	DownloadURL(ctx context.Context, objectPath string) (string, error)
}

// Object path prefixes, one per media class.
const (
	profileDir = "images"
	photoDir   = "message_images"
	videoDir   = "message_videos"
)

// ProfilePicturePath returns the object path for a user's avatar.
func ProfilePicturePath(fileName string) string {
	return profileDir + "/" + fileName
}

// NewPhotoPath returns a fresh object path for a photo message.
func NewPhotoPath() string {
	return photoDir + "/" + uuid.New().String() + ".png"
}

// NewVideoPath returns a fresh object path for a video message.
func NewVideoPath() string {
	return videoDir + "/" + uuid.New().String() + ".mov"
}
