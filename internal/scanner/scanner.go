// Package scanner turns inbound group messages into blacklist mutations and
// plain-text replies. It owns the removal-command grammar and the identifier
// extraction rules.
package scanner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/warden-bot/warden/internal/blacklist"
	"github.com/warden-bot/warden/internal/config"
	"go.uber.org/zap"
)

var (
	// removeCmdRe is the admin removal command: the literal keyword,
	// optional whitespace, then the target identifier, anchored at both ends.
	removeCmdRe = regexp.MustCompile(`^删除黑名单\s*(\d+)$`)

	// identifierRe matches candidate identifiers: maximal runs of 8 or
	// more decimal digits.
	identifierRe = regexp.MustCompile(`[0-9]{8,}`)
)

const (
	replyPermissionDenied = "只有群管理员才能删除黑名单"
	replyRemoveFailed     = "删除失败，请稍后重试"
)

func replyNotInBlacklist(id string) string { return fmt.Sprintf("%s 不在黑名单中", id) }
func replyRemoved(id string) string        { return fmt.Sprintf("已将 %s 移出黑名单", id) }
func replyAlreadyListed(id string) string  { return fmt.Sprintf("%s 已在黑名单中", id) }
func replyAdded(id string) string          { return fmt.Sprintf("已将 %s 加入黑名单", id) }

// Message is one inbound group message with its sender context.
type Message struct {
	GroupID    int64
	UserID     int64
	Text       string
	SenderRole string // "owner", "admin" or "member"
}

// Result collects the outcome of scanning one message: the replies to send
// back to the group, in order, and the identifiers that were actually
// added to or removed from the blacklist.
type Result struct {
	Replies []string
	Added   []string
	Removed []string
}

// Scanner applies the removal command and the monitored-group scan to
// group messages. It is stateless; all state lives in the store.
type Scanner struct {
	cfg    *config.Config
	store  blacklist.Store
	logger *zap.Logger
}

// New creates a Scanner.
func New(cfg *config.Config, store blacklist.Store, logger *zap.Logger) *Scanner {
	return &Scanner{cfg: cfg, store: store, logger: logger}
}

// Scan processes one message. The removal command is honored in any group;
// identifier extraction only runs for monitored groups and is suppressed
// entirely when an exclusion word appears in the text.
func (s *Scanner) Scan(ctx context.Context, msg Message) Result {
	if m := removeCmdRe.FindStringSubmatch(msg.Text); m != nil {
		// Each branch returns: a removal command never falls through to
		// identifier extraction for the same message.
		return s.handleRemoveCommand(ctx, msg, m[1])
	}

	var res Result

	if !s.cfg.Monitored(msg.GroupID) {
		return res
	}

	for _, word := range s.cfg.ExclusionWords {
		if strings.Contains(msg.Text, word) {
			s.logger.Debug("message skipped by exclusion word",
				zap.Int64("group_id", msg.GroupID),
				zap.String("word", word),
			)
			return res
		}
	}

	for _, id := range identifierRe.FindAllString(msg.Text, -1) {
		if s.store.Contains(ctx, id) {
			res.Replies = append(res.Replies, replyAlreadyListed(id))
			continue
		}
		if !s.store.Add(ctx, id) {
			// One failed insert must not abort the remaining candidates.
			s.logger.Error("failed to blacklist identifier",
				zap.String("identifier", id),
				zap.Int64("group_id", msg.GroupID),
			)
			continue
		}
		res.Added = append(res.Added, id)
		res.Replies = append(res.Replies, replyAdded(id))
	}
	return res
}

func (s *Scanner) handleRemoveCommand(ctx context.Context, msg Message, id string) Result {
	var res Result
	if !isElevated(msg.SenderRole) {
		res.Replies = append(res.Replies, replyPermissionDenied)
		return res
	}
	if !s.store.Contains(ctx, id) {
		res.Replies = append(res.Replies, replyNotInBlacklist(id))
		return res
	}
	if !s.store.Remove(ctx, id) {
		res.Replies = append(res.Replies, replyRemoveFailed)
		return res
	}
	res.Removed = append(res.Removed, id)
	res.Replies = append(res.Replies, replyRemoved(id))
	return res
}

func isElevated(role string) bool {
	return role == "admin" || role == "owner"
}
