package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/directory"
	"github.com/kshitizb/talk/internal/engine"
	"github.com/kshitizb/talk/internal/httpapi"
	"github.com/kshitizb/talk/internal/identity"
	"github.com/kshitizb/talk/internal/keyedstore"
	"github.com/kshitizb/talk/internal/media"
	"github.com/kshitizb/talk/internal/status"
)

// newTestServer wires the full daemon stack by hand, the way the fx
// providers do, against a memory store and a temp media dir.
func newTestServer(t *testing.T, who identity.Identity) (*httptest.Server, keyedstore.Store) {
	t.Helper()

	store := keyedstore.NewMemory()
	logger := zap.NewNop()
	b := bus.New()
	machine := status.NewMachine(b)
	if err := machine.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}

	ident := identity.Static{Identity: who}
	uploader, err := media.NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dir := directory.New(store, b, logger)
	eng := engine.New(store, ident, uploader, b, logger)
	h := httpapi.NewHandler(eng, dir, ident, machine, b, logger)

	srv := httptest.NewServer(httpapi.Router(h))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatal(err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	self := identity.Identity{UID: "u1", Email: "a@x.com", DisplayName: "Ann Shrestha"}
	srv, _ := newTestServer(t, self)

	// Health and status.
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	var st struct {
		State string `json:"state"`
	}
	resp, err = http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &st)
	if st.State != "READY" {
		t.Errorf("state = %q, want READY", st.State)
	}

	// Identity.
	var me struct {
		UID string `json:"uid"`
	}
	resp, err = http.Get(srv.URL + "/v1/me")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &me)
	if me.UID != "u1" {
		t.Errorf("me.uid = %q, want u1", me.UID)
	}

	// Register both users in the directory.
	for i, u := range []map[string]string{
		{"uid": "u1", "first_name": "Ann", "last_name": "Shrestha", "email": "A@X.com"},
		{"uid": "u2", "first_name": "Binod", "last_name": "Gurung", "email": "b@x.com"},
	} {
		resp = postJSON(t, srv.URL+"/v1/users", u)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("insert user %d status = %d", i, resp.StatusCode)
		}
	}

	// Search excludes the local user by email.
	var search struct {
		Users []struct {
			UID string `json:"uid"`
		} `json:"users"`
	}
	resp, err = http.Get(srv.URL + "/v1/users/search?q=")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &search)
	if len(search.Users) != 1 || search.Users[0].UID != "u2" {
		t.Errorf("search = %+v, want only u2", search.Users)
	}

	// Start a conversation.
	var created struct {
		ConversationID string `json:"conversation_id"`
	}
	resp = postJSON(t, srv.URL+"/v1/conversations", map[string]any{
		"counterparty_uid":   "u2",
		"counterparty_email": "b@x.com",
		"counterparty_name":  "Binod Gurung",
		"kind":               "text",
		"content":            "hello",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create conversation status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &created)
	if created.ConversationID == "" {
		t.Fatal("empty conversation id")
	}

	// Probe existence.
	var exists struct {
		Exists         bool   `json:"exists"`
		ConversationID string `json:"conversation_id"`
	}
	resp, err = http.Get(srv.URL + "/v1/conversations/exists?uid=u2")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &exists)
	// The probe reads the counterparty's registry; u2 carries the mirrored
	// summary from the create.
	if !exists.Exists || exists.ConversationID != created.ConversationID {
		t.Errorf("exists = %+v, want %q", exists, created.ConversationID)
	}

	// Append a message and read the log back.
	resp = postJSON(t, fmt.Sprintf("%s/v1/conversations/%s/messages", srv.URL, created.ConversationID), map[string]any{
		"counterparty_uid": "u2",
		"kind":             "text",
		"content":          "second",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send message status = %d", resp.StatusCode)
	}

	var log struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	resp, err = http.Get(fmt.Sprintf("%s/v1/conversations/%s/messages", srv.URL, created.ConversationID))
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &log)
	if len(log.Messages) != 2 || log.Messages[1].Content != "second" {
		t.Errorf("log = %+v, want hello then second", log.Messages)
	}

	// Registry snapshot shows the thread.
	var list struct {
		Conversations []struct {
			ID string `json:"id"`
		} `json:"conversations"`
	}
	resp, err = http.Get(srv.URL + "/v1/conversations")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &list)
	if len(list.Conversations) != 1 || list.Conversations[0].ID != created.ConversationID {
		t.Errorf("conversations = %+v", list.Conversations)
	}

	// Delete removes it from this registry only.
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/conversations/%s", srv.URL, created.ConversationID), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/conversations")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &list)
	if len(list.Conversations) != 0 {
		t.Errorf("conversations after delete = %+v, want empty", list.Conversations)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	self := identity.Identity{UID: "u1", Email: "a@x.com", DisplayName: "Ann"}
	srv, _ := newTestServer(t, self)

	resp := postJSON(t, srv.URL+"/v1/conversations", map[string]any{
		"counterparty_uid": "u2",
		"kind":             "sticker",
		"content":          "x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteMissingConversationIs404(t *testing.T) {
	self := identity.Identity{UID: "u1", Email: "a@x.com", DisplayName: "Ann"}
	srv, _ := newTestServer(t, self)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/conversations/conversation_ghost", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
