package storage

import "time"

// EventWriter is the interface for writing moderation events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *ModerationEvent)
	Close()
}

// Event kinds.
const (
	KindJoinRequest = "join_request"
	KindMessageScan = "message_scan"
)

// Actions recorded for message-scan events. Join-request events carry the
// policy decision name as their action.
const (
	ActionBlacklistAdd    = "blacklist_add"
	ActionBlacklistRemove = "blacklist_remove"
)

// ModerationEvent is a single moderation decision to be persisted: the
// outcome of one join request, or one blacklist mutation made while
// scanning a message.
type ModerationEvent struct {
	EventID   string
	Timestamp time.Time
	Kind      string // join_request | message_scan
	Action    string // decision name or blacklist mutation
	GroupID   int64
	UserID    string // requester or blacklisted identifier, decimal string
	Detail    string // reject reason, message preview, ...
	LatencyMs float32
}

// DetailPreviewLength is the max chars stored in the detail column.
const DetailPreviewLength = 200

// TruncateDetail returns the first N characters (runes) of a detail string
// for storage. It never splits a multi-byte UTF-8 character.
func TruncateDetail(detail string, maxLen int) string {
	runes := []rune(detail)
	if len(runes) <= maxLen {
		return detail
	}
	return string(runes[:maxLen])
}
