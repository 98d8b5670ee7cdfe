// Package router dispatches raw platform events to the join-admission
// policy and the message scanner. It holds no state of its own.
package router

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/warden-bot/warden/internal/metrics"
	"github.com/warden-bot/warden/internal/policy"
	"github.com/warden-bot/warden/internal/scanner"
	"github.com/warden-bot/warden/internal/storage"
	"go.uber.org/zap"
)

// rawEvent is the envelope shared by all platform event frames. Fields not
// present for a given event kind are simply left zero.
type rawEvent struct {
	PostType    string `json:"post_type"`
	RequestType string `json:"request_type"`
	MessageType string `json:"message_type"`
	SubType     string `json:"sub_type"`
	GroupID     int64  `json:"group_id"`
	UserID      int64  `json:"user_id"`
	Comment     string `json:"comment"`
	Flag        string `json:"flag"`
	RawMessage  string `json:"raw_message"`
	Sender      struct {
		Role string `json:"role"`
	} `json:"sender"`
}

// Replier sends plain-text replies back into a group. Failures are logged
// and never retried.
type Replier interface {
	SendGroupMsg(ctx context.Context, groupID int64, text string) error
}

// Router classifies platform events and hands them to the policy or the
// scanner. Every event is handled in its own goroutine; errors from one
// event never affect another.
type Router struct {
	scanner   *scanner.Scanner
	admission *policy.Admission
	replier   Replier
	writer    storage.EventWriter
	logger    *zap.Logger
}

// New creates a Router.
func New(sc *scanner.Scanner, adm *policy.Admission, replier Replier, writer storage.EventWriter, logger *zap.Logger) *Router {
	return &Router{
		scanner:   sc,
		admission: adm,
		replier:   replier,
		writer:    writer,
		logger:    logger,
	}
}

// Dispatch handles one raw event frame asynchronously.
func (r *Router) Dispatch(raw []byte) {
	go r.Handle(context.Background(), raw)
}

// Handle parses and routes one event frame. Frames that are not valid JSON
// objects or lack an event category are silently dropped.
func (r *Router) Handle(ctx context.Context, raw []byte) {
	var ev rawEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.PostType == "" {
		metrics.EventsReceived.WithLabelValues("dropped").Inc()
		return
	}

	switch {
	case ev.PostType == "request" && ev.RequestType == "group":
		metrics.EventsReceived.WithLabelValues("join_request").Inc()
		r.handleJoinRequest(ctx, ev)
	case ev.PostType == "message" && ev.MessageType == "group":
		metrics.EventsReceived.WithLabelValues("group_message").Inc()
		r.handleGroupMessage(ctx, ev)
	default:
		metrics.EventsReceived.WithLabelValues("dropped").Inc()
	}
}

func (r *Router) handleJoinRequest(ctx context.Context, ev rawEvent) {
	start := time.Now()

	req := policy.JoinRequest{
		SubType: ev.SubType,
		GroupID: ev.GroupID,
		UserID:  ev.UserID,
		Comment: ev.Comment,
		Flag:    ev.Flag,
	}
	decision := r.admission.HandleJoin(ctx, req)
	metrics.JoinDecisions.WithLabelValues(decision.String()).Inc()

	if decision == policy.DecisionIgnored {
		return
	}
	r.writer.Write(&storage.ModerationEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      storage.KindJoinRequest,
		Action:    decision.String(),
		GroupID:   ev.GroupID,
		UserID:    formatID(ev.UserID),
		Detail:    storage.TruncateDetail(ev.Comment, storage.DetailPreviewLength),
		LatencyMs: float32(time.Since(start)) / float32(time.Millisecond),
	})
}

func (r *Router) handleGroupMessage(ctx context.Context, ev rawEvent) {
	if ev.RawMessage == "" {
		return
	}
	start := time.Now()

	res := r.scanner.Scan(ctx, scanner.Message{
		GroupID:    ev.GroupID,
		UserID:     ev.UserID,
		Text:       ev.RawMessage,
		SenderRole: ev.Sender.Role,
	})

	for _, id := range res.Added {
		metrics.BlacklistMutations.WithLabelValues("add").Inc()
		r.writeScanEvent(ev, storage.ActionBlacklistAdd, id, start)
	}
	for _, id := range res.Removed {
		metrics.BlacklistMutations.WithLabelValues("remove").Inc()
		r.writeScanEvent(ev, storage.ActionBlacklistRemove, id, start)
	}

	for _, reply := range res.Replies {
		if err := r.replier.SendGroupMsg(ctx, ev.GroupID, reply); err != nil {
			metrics.RepliesSent.WithLabelValues("error").Inc()
			r.logger.Error("reply send failed",
				zap.Int64("group_id", ev.GroupID),
				zap.Error(err),
			)
			continue
		}
		metrics.RepliesSent.WithLabelValues("ok").Inc()
	}
}

func (r *Router) writeScanEvent(ev rawEvent, action, identifier string, start time.Time) {
	r.writer.Write(&storage.ModerationEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      storage.KindMessageScan,
		Action:    action,
		GroupID:   ev.GroupID,
		UserID:    identifier,
		Detail:    storage.TruncateDetail(ev.RawMessage, storage.DetailPreviewLength),
		LatencyMs: float32(time.Since(start)) / float32(time.Millisecond),
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
