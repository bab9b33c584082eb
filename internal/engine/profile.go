package engine

import (
	"context"
	"fmt"

	"github.com/kshitizb/talk/internal/chat"
	"github.com/kshitizb/talk/internal/media"
)

// SetProfilePicture uploads the local user's avatar and returns its URL.
// The object name is fixed per uid, so a re-upload replaces the old avatar.
func (e *Engine) SetProfilePicture(ctx context.Context, data []byte) (string, error) {
	self, err := e.ident.Current(ctx)
	if err != nil {
		return "", err
	}
	url, err := e.uploader.Upload(ctx, data, media.ProfilePicturePath(chat.ProfilePictureName(self.UID)))
	if err != nil {
		return "", fmt.Errorf("%w: profile picture: %v", chat.ErrUploadFailed, err)
	}
	return url, nil
}

// ProfilePictureURL resolves the avatar URL for any uid.
func (e *Engine) ProfilePictureURL(ctx context.Context, uid string) (string, error) {
	url, err := e.uploader.DownloadURL(ctx, media.ProfilePicturePath(chat.ProfilePictureName(uid)))
	if err != nil {
		return "", fmt.Errorf("%w: avatar %s: %v", chat.ErrDownloadURLUnavailable, uid, err)
	}
	return url, nil
}
