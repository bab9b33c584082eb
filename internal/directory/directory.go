// Package directory maintains the searchable index of known users: the
// per-uid profile records and the flat, append-only "users" sequence.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/chat"
	"github.com/kshitizb/talk/internal/keyedstore"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each store read and write.
const DefaultTimeout = 10 * time.Second

// Directory reads and maintains the user index. The search snapshot is
// fetched lazily on first use and reused for the rest of the session;
// users inserted by other clients appear only after a restart.
type Directory struct {
	store   keyedstore.Store
	events  *bus.Bus
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	users   []chat.DirectoryEntry
	fetched bool
}

// New creates a directory over the given store.
func New(store keyedstore.Store, events *bus.Bus, logger *zap.Logger) *Directory {
	return &Directory{
		store:   store,
		events:  events,
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

// UserExists reports whether a profile record exists at the uid path.
func (d *Directory) UserExists(ctx context.Context, uid string) (bool, error) {
	_, err := d.read(ctx, chat.UserPath(uid))
	if errors.Is(err, keyedstore.ErrAbsent) {
		return false, nil
	}
	if errors.Is(err, chat.ErrTimeout) {
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("%w: user %s: %v", chat.ErrFetchFailed, uid, err)
	}
	return true, nil
}

// InsertUser writes the profile record, then appends the user to the shared
// users sequence with a read-append-write. There is no deduplication on the
// read side: two clients inserting the same uid concurrently both append.
func (d *Directory) InsertUser(ctx context.Context, user chat.UserRecord) error {
	if err := d.write(ctx, chat.UserPath(user.UID), user); err != nil {
		return fmt.Errorf("%w: profile %s: %w", chat.ErrWriteFailed, user.UID, err)
	}

	entries, err := d.sequence(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, chat.DirectoryEntry{
		UID:   user.UID,
		Name:  user.Name(),
		Email: user.Email,
	})
	if err := d.write(ctx, chat.UsersPath(), entries); err != nil {
		return fmt.Errorf("%w: users sequence: %w", chat.ErrWriteFailed, err)
	}

	d.mu.Lock()
	if d.fetched {
		d.users = entries
	}
	d.mu.Unlock()

	d.events.Publish(bus.Event{
		Kind:      bus.KindUserInserted,
		Timestamp: time.Now(),
		Payload:   user.UID,
	})
	d.logger.Info("user inserted", zap.String("uid", user.UID))
	return nil
}

// ListUsers returns the whole directory sequence in one shot.
func (d *Directory) ListUsers(ctx context.Context) ([]chat.DirectoryEntry, error) {
	raw, err := d.read(ctx, chat.UsersPath())
	if errors.Is(err, keyedstore.ErrAbsent) {
		return nil, fmt.Errorf("%w: users sequence absent", chat.ErrFetchFailed)
	}
	if errors.Is(err, chat.ErrTimeout) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: users sequence: %v", chat.ErrFetchFailed, err)
	}
	return chat.DecodeDirectory(raw)
}

// Search filters the cached directory snapshot by case-insensitive name
// prefix, excluding the caller's own email. An empty query matches every
// entry except the caller.
func (d *Directory) Search(ctx context.Context, query, excludeEmail string) ([]chat.DirectoryEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.fetched {
		users, err := d.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		d.users = users
		d.fetched = true
	}

	prefix := strings.ToLower(query)
	exclude := strings.ToLower(excludeEmail)
	results := make([]chat.DirectoryEntry, 0, len(d.users))
	for _, u := range d.users {
		if strings.ToLower(u.Email) == exclude {
			continue
		}
		if strings.HasPrefix(strings.ToLower(u.Name), prefix) {
			results = append(results, u)
		}
	}
	return results, nil
}

// sequence reads the current users sequence, treating an absent path as an
// empty sequence so the first insert can create it.
func (d *Directory) sequence(ctx context.Context) ([]chat.DirectoryEntry, error) {
	raw, err := d.read(ctx, chat.UsersPath())
	if errors.Is(err, keyedstore.ErrAbsent) {
		return []chat.DirectoryEntry{}, nil
	}
	if errors.Is(err, chat.ErrTimeout) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: users sequence: %v", chat.ErrFetchFailed, err)
	}
	entries, err := chat.DecodeDirectory(raw)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *Directory) read(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	raw, err := d.store.ReadOnce(ctx, path)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: read %s", chat.ErrTimeout, path)
	}
	return raw, err
}

func (d *Directory) write(ctx context.Context, path string, value any) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err := d.store.Write(ctx, path, value)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: write %s", chat.ErrTimeout, path)
	}
	return err
}
