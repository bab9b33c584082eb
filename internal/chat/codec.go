package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind aliases written by older clients. Decoded to canonical kinds,
// never re-emitted.
var kindAliases = map[string]Kind{
	"media_item":    KindVideo,
	"location_item": KindLocation,
}

// NormalizeKind maps a wire type tag to a canonical kind.
// Returns false for unknown tags.
func NormalizeKind(tag string) (Kind, bool) {
	if k := Kind(tag); k.Valid() {
		return k, true
	}
	if k, ok := kindAliases[tag]; ok {
		return k, true
	}
	return "", false
}

// EncodeLocation encodes a coordinate pair as "<longitude>,<latitude>".
func EncodeLocation(longitude, latitude float64) string {
	return strconv.FormatFloat(longitude, 'f', -1, 64) + "," + strconv.FormatFloat(latitude, 'f', -1, 64)
}

// DecodeLocation parses a "<longitude>,<latitude>" content string.
func DecodeLocation(content string) (longitude, latitude float64, err error) {
	lon, lat, ok := strings.Cut(content, ",")
	if !ok {
		return 0, 0, fmt.Errorf("location content %q: missing separator", content)
	}
	longitude, err = strconv.ParseFloat(lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("location longitude %q: %w", lon, err)
	}
	latitude, err = strconv.ParseFloat(lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("location latitude %q: %w", lat, err)
	}
	return longitude, latitude, nil
}

// DecodeSummaries decodes a conversation registry snapshot. Malformed
// records are dropped and counted rather than failing the batch. A nil
// snapshot decodes to an empty registry.
func DecodeSummaries(raw json.RawMessage) (summaries []ConversationSummary, skipped int, err error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, 0, fmt.Errorf("%w: registry snapshot: %v", ErrFetchFailed, err)
	}
	for _, rec := range records {
		var s ConversationSummary
		if err := json.Unmarshal(rec, &s); err != nil || s.ID == "" || s.CounterpartyUID == "" {
			skipped++
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, skipped, nil
}

// DecodeMessages decodes a message log snapshot, normalizing legacy kind
// tags and dropping records with unknown kinds or missing ids. Order is
// preserved from the snapshot: array position is the only sequence number.
func DecodeMessages(raw json.RawMessage) (messages []Message, skipped int, err error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, 0, fmt.Errorf("%w: message log snapshot: %v", ErrFetchFailed, err)
	}
	for _, rec := range records {
		var m Message
		if err := json.Unmarshal(rec, &m); err != nil || m.ID == "" {
			skipped++
			continue
		}
		kind, ok := NormalizeKind(string(m.Kind))
		if !ok {
			skipped++
			continue
		}
		m.Kind = kind
		messages = append(messages, m)
	}
	return messages, skipped, nil
}

// DecodeDirectory decodes the shared users sequence. Unlike registry and
// log snapshots, an absent directory is a fetch failure: the sequence is
// created with the first user and should always exist afterwards.
func DecodeDirectory(raw json.RawMessage) ([]DirectoryEntry, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: users sequence absent", ErrFetchFailed)
	}
	var entries []DirectoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: users sequence: %v", ErrFetchFailed, err)
	}
	return entries, nil
}
