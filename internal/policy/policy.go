// Package policy decides group-join requests. The decision is a pure
// function of the request, the blacklist and the requester's account level;
// nothing is kept across requests.
package policy

import (
	"context"
	"strconv"

	"github.com/warden-bot/warden/internal/blacklist"
	"github.com/warden-bot/warden/internal/config"
	"go.uber.org/zap"
)

// levelRejectReason is the user-facing reason sent with level-based rejects.
const levelRejectReason = "账号风险等级高，请换一个安全等级高的账号"

// JoinRequest is one join or invite request. It lives for a single
// event-handling invocation and is never persisted.
type JoinRequest struct {
	SubType string // "add" or "invite"
	GroupID int64
	UserID  int64
	Comment string
	Flag    string // opaque platform correlation token
}

// Platform is the slice of the chat platform the policy needs. Faults from
// either call are logged and absorbed; they never escape a handler.
type Platform interface {
	// AccountLevel fetches the requester's account level.
	AccountLevel(ctx context.Context, userID int64) (int, error)
	// SetGroupAddRequest answers a pending join request. An empty reason
	// is valid for rejects.
	SetGroupAddRequest(ctx context.Context, flag, subType string, approve bool, reason string) error
}

// Decision classifies the outcome of one join request.
type Decision int

const (
	// DecisionIgnored means the event was not a moderated join request
	// (wrong sub_type, or the target group is exempt).
	DecisionIgnored Decision = iota
	// DecisionApproved means no rejection was issued. The platform
	// approves by default; the warden never calls an explicit approve.
	DecisionApproved
	// DecisionRejectedBlacklist means the requester was blacklisted.
	DecisionRejectedBlacklist
	// DecisionRejectedLevel means the requester's account level was below
	// the configured minimum.
	DecisionRejectedLevel
	// DecisionAbstained means the account lookup failed and the request
	// was left untouched. Re-requesting is possible; a wrongful reject is
	// not easily undone.
	DecisionAbstained
)

// String returns the decision name used in metrics and audit events.
func (d Decision) String() string {
	switch d {
	case DecisionApproved:
		return "approved_implicit"
	case DecisionRejectedBlacklist:
		return "rejected_blacklist"
	case DecisionRejectedLevel:
		return "rejected_level"
	case DecisionAbstained:
		return "abstained"
	default:
		return "ignored"
	}
}

// Admission applies the join-request admission policy.
type Admission struct {
	cfg      *config.Config
	store    blacklist.Store
	platform Platform
	logger   *zap.Logger
}

// New creates an Admission policy.
func New(cfg *config.Config, store blacklist.Store, platform Platform, logger *zap.Logger) *Admission {
	return &Admission{cfg: cfg, store: store, platform: platform, logger: logger}
}

// HandleJoin decides one join request. Blacklisted requesters are rejected
// before the account lookup, so an outage of the account API cannot let a
// blacklisted identifier through.
func (a *Admission) HandleJoin(ctx context.Context, req JoinRequest) Decision {
	if req.SubType != "add" && req.SubType != "invite" {
		return DecisionIgnored
	}
	if a.cfg.Exempt(req.GroupID) {
		return DecisionIgnored
	}

	if a.store.Contains(ctx, formatUserID(req.UserID)) {
		a.reject(ctx, req, "")
		a.logger.Info("join request rejected: blacklisted",
			zap.Int64("group_id", req.GroupID),
			zap.Int64("user_id", req.UserID),
		)
		return DecisionRejectedBlacklist
	}

	level, err := a.platform.AccountLevel(ctx, req.UserID)
	if err != nil {
		a.logger.Error("account lookup failed, leaving join request untouched",
			zap.Int64("user_id", req.UserID),
			zap.Error(err),
		)
		return DecisionAbstained
	}

	if level < a.cfg.MinLevel {
		a.reject(ctx, req, levelRejectReason)
		a.logger.Info("join request rejected: account level below minimum",
			zap.Int64("group_id", req.GroupID),
			zap.Int64("user_id", req.UserID),
			zap.Int("level", level),
			zap.Int("min_level", a.cfg.MinLevel),
		)
		return DecisionRejectedLevel
	}

	return DecisionApproved
}

// reject is fire-and-forget: a failed reject call is logged, never retried.
func (a *Admission) reject(ctx context.Context, req JoinRequest, reason string) {
	if err := a.platform.SetGroupAddRequest(ctx, req.Flag, req.SubType, false, reason); err != nil {
		a.logger.Error("reject call failed",
			zap.Int64("group_id", req.GroupID),
			zap.Int64("user_id", req.UserID),
			zap.Error(err),
		)
	}
}

// formatUserID renders a numeric account ID as the decimal string form
// stored in the blacklist, matching what the scanner extracts from text.
func formatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
