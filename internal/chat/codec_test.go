package chat

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeLocation(t *testing.T) {
	content := EncodeLocation(85.3240, 27.7172)
	if content != "85.324,27.7172" {
		t.Errorf("EncodeLocation = %q, want 85.324,27.7172", content)
	}

	lon, lat, err := DecodeLocation(content)
	if err != nil {
		t.Fatalf("DecodeLocation() error = %v", err)
	}
	if math.Abs(lon-85.3240) > 1e-9 || math.Abs(lat-27.7172) > 1e-9 {
		t.Errorf("round-trip = (%v, %v), want (85.3240, 27.7172)", lon, lat)
	}
}

func TestDecodeLocationMalformed(t *testing.T) {
	cases := []string{"", "85.324", "a,b", "85.324,", ",27.7"}
	for _, content := range cases {
		if _, _, err := DecodeLocation(content); err == nil {
			t.Errorf("DecodeLocation(%q) expected error", content)
		}
	}
}

func TestNormalizeKind(t *testing.T) {
	cases := []struct {
		tag  string
		want Kind
		ok   bool
	}{
		{"text", KindText, true},
		{"photo", KindPhoto, true},
		{"video", KindVideo, true},
		{"location", KindLocation, true},
		{"media_item", KindVideo, true},
		{"location_item", KindLocation, true},
		{"emoji", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeKind(tc.tag)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NormalizeKind(%q) = (%q, %v), want (%q, %v)", tc.tag, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDecodeMessagesSkipsMalformed(t *testing.T) {
	raw := json.RawMessage(`[
		{"id":"m1","type":"text","content":"hi","sender_uid":"u1"},
		{"id":"","type":"text","content":"no id"},
		{"id":"m2","type":"bogus","content":"?"},
		{"id":"m3","type":"media_item","content":"https://cdn/x.mov","sender_uid":"u2"},
		"not an object"
	]`)

	msgs, skipped, err := DecodeMessages(raw)
	if err != nil {
		t.Fatalf("DecodeMessages() error = %v", err)
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[1].ID != "m3" {
		t.Errorf("order = %q,%q, want m1,m3", msgs[0].ID, msgs[1].ID)
	}
	if msgs[1].Kind != KindVideo {
		t.Errorf("alias kind = %q, want %q", msgs[1].Kind, KindVideo)
	}
}

func TestDecodeMessagesAbsent(t *testing.T) {
	msgs, skipped, err := DecodeMessages(nil)
	if err != nil || msgs != nil || skipped != 0 {
		t.Errorf("DecodeMessages(nil) = (%v, %d, %v), want empty", msgs, skipped, err)
	}
}

func TestDecodeMessagesNotASequence(t *testing.T) {
	if _, _, err := DecodeMessages(json.RawMessage(`{"id":"m1"}`)); err == nil {
		t.Error("DecodeMessages() expected error for non-sequence snapshot")
	}
}

func TestDecodeSummariesSkipsMalformed(t *testing.T) {
	raw := json.RawMessage(`[
		{"id":"conversation_a","counterparty_uid":"u2","latest_message":{"date":"d","text":"hi"}},
		{"id":"","counterparty_uid":"u3"},
		{"id":"conversation_b","counterparty_uid":""},
		{"id":"conversation_c","counterparty_uid":"u4"}
	]`)

	sums, skipped, err := DecodeSummaries(raw)
	if err != nil {
		t.Fatalf("DecodeSummaries() error = %v", err)
	}
	if skipped != 2 || len(sums) != 2 {
		t.Fatalf("got %d summaries (%d skipped), want 2 (2 skipped)", len(sums), skipped)
	}
	if sums[0].LatestMessage.Text != "hi" {
		t.Errorf("latest message = %q, want hi", sums[0].LatestMessage.Text)
	}
}

func TestConversationIDDerivation(t *testing.T) {
	at, err := time.Parse(TimeFormat, "Jan 1, 2022 at 1:23:45 PM UTC")
	if err != nil {
		t.Fatal(err)
	}
	msgID := MessageID("u2", "u1", at)
	if msgID != "u2_u1_Jan 1, 2022 at 1:23:45 PM UTC" {
		t.Errorf("MessageID = %q", msgID)
	}
	convID := ConversationID(msgID)
	if convID != "conversation_u2_u1_Jan 1, 2022 at 1:23:45 PM UTC" {
		t.Errorf("ConversationID = %q", convID)
	}
	if !IsConversationID(convID) {
		t.Error("IsConversationID() = false, want true")
	}
}

func TestNewUserRecordNormalizesEmail(t *testing.T) {
	u := NewUserRecord("u1", "Ann", "Shrestha", "Ann@X.COM")
	if u.Email != "ann@x.com" {
		t.Errorf("email = %q, want ann@x.com", u.Email)
	}
	if u.Name() != "Ann Shrestha" {
		t.Errorf("name = %q, want Ann Shrestha", u.Name())
	}
	if u.ProfilePictureName() != "u1_profile_pic.png" {
		t.Errorf("profile picture = %q", u.ProfilePictureName())
	}
}
