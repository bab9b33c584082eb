package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/chat"
	"github.com/kshitizb/talk/internal/keyedstore"
	"go.uber.org/zap"
)

func testDirectory(t *testing.T) (*Directory, *keyedstore.Memory) {
	t.Helper()
	store := keyedstore.NewMemory()
	return New(store, bus.New(), zap.NewNop()), store
}

func TestUserExists(t *testing.T) {
	d, _ := testDirectory(t)
	ctx := context.Background()

	exists, err := d.UserExists(ctx, "u1")
	if err != nil {
		t.Fatalf("UserExists() error = %v", err)
	}
	if exists {
		t.Error("UserExists() = true before insert")
	}

	if err := d.InsertUser(ctx, chat.NewUserRecord("u1", "Ann", "Shrestha", "a@x.com")); err != nil {
		t.Fatalf("InsertUser() error = %v", err)
	}

	exists, err = d.UserExists(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("UserExists() = false after insert")
	}
}

func TestInsertUserAppendsSequence(t *testing.T) {
	d, _ := testDirectory(t)
	ctx := context.Background()

	if err := d.InsertUser(ctx, chat.NewUserRecord("u1", "Ann", "S", "a@x.com")); err != nil {
		t.Fatal(err)
	}
	if err := d.InsertUser(ctx, chat.NewUserRecord("u2", "Anand", "G", "b@x.com")); err != nil {
		t.Fatal(err)
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users[0].UID != "u1" || users[1].UID != "u2" {
		t.Errorf("order = %q,%q, want u1,u2", users[0].UID, users[1].UID)
	}
	if users[0].Name != "Ann S" {
		t.Errorf("name = %q, want Ann S", users[0].Name)
	}
}

func TestInsertUserDuplicateRacePreserved(t *testing.T) {
	// Two clients inserting the same uid both append; the sequence has no
	// uniqueness constraint and the insert path does not deduplicate.
	d, _ := testDirectory(t)
	ctx := context.Background()

	u := chat.NewUserRecord("u1", "Ann", "S", "a@x.com")
	if err := d.InsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := d.InsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("got %d entries, want 2 (duplicate preserved)", len(users))
	}
}

func TestListUsersAbsentSequence(t *testing.T) {
	d, _ := testDirectory(t)
	_, err := d.ListUsers(context.Background())
	if !errors.Is(err, chat.ErrFetchFailed) {
		t.Errorf("ListUsers() error = %v, want ErrFetchFailed", err)
	}
}

func TestSearchPrefixAndExclusion(t *testing.T) {
	d, _ := testDirectory(t)
	ctx := context.Background()

	for _, u := range []chat.UserRecord{
		chat.NewUserRecord("u1", "Ann", "", "a@x.com"),
		chat.NewUserRecord("u2", "Anand", "", "b@x.com"),
	} {
		if err := d.InsertUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	results, err := d.Search(ctx, "an", "a@x.com")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].UID != "u2" {
		t.Errorf("Search(an) = %v, want only u2", results)
	}
}

func TestSearchEmptyQueryReturnsAllButSelf(t *testing.T) {
	d, _ := testDirectory(t)
	ctx := context.Background()

	for _, u := range []chat.UserRecord{
		chat.NewUserRecord("u1", "Ann", "", "a@x.com"),
		chat.NewUserRecord("u2", "Anand", "", "b@x.com"),
		chat.NewUserRecord("u3", "Bikash", "", "c@x.com"),
	} {
		if err := d.InsertUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	results, err := d.Search(ctx, "", "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchNoMatchIsEmptyNotError(t *testing.T) {
	d, _ := testDirectory(t)
	ctx := context.Background()
	if err := d.InsertUser(ctx, chat.NewUserRecord("u1", "Ann", "", "a@x.com")); err != nil {
		t.Fatal(err)
	}

	results, err := d.Search(ctx, "zzzNoMatch", "a@x.com")
	if err != nil {
		t.Errorf("Search() error = %v, want nil", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearchCacheIsSessionScoped(t *testing.T) {
	// A user written to the store behind the directory's back is invisible
	// to search once the snapshot has been fetched.
	d, store := testDirectory(t)
	ctx := context.Background()

	if err := d.InsertUser(ctx, chat.NewUserRecord("u1", "Ann", "", "a@x.com")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Search(ctx, "", "self@x.com"); err != nil {
		t.Fatal(err)
	}

	// Another client appends directly.
	if err := store.Write(ctx, chat.UsersPath(), []chat.DirectoryEntry{
		{UID: "u1", Name: "Ann", Email: "a@x.com"},
		{UID: "u9", Name: "Zoe", Email: "z@x.com"},
	}); err != nil {
		t.Fatal(err)
	}

	results, err := d.Search(ctx, "zoe", "self@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("stale cache expected; got %v", results)
	}
}
