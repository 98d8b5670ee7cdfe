package scanner

import (
	"context"
	"strings"
	"testing"

	"github.com/warden-bot/warden/internal/blacklist"
	"github.com/warden-bot/warden/internal/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		MonitoredGroups: map[int64]struct{}{1001: {}},
		ExclusionWords:  []string{"订单号"},
	}
}

func newTestScanner(store blacklist.Store) *Scanner {
	return New(testConfig(), store, zap.NewNop())
}

func TestScan_ExtractsAndBlacklistsIdentifier(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)
	ctx := context.Background()

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "请找 12345678 联系我", SenderRole: "member"})

	if len(res.Added) != 1 || res.Added[0] != "12345678" {
		t.Fatalf("want exactly one add of 12345678, got %v", res.Added)
	}
	if !store.Contains(ctx, "12345678") {
		t.Error("identifier should be in the store")
	}
	if len(res.Replies) != 1 || !strings.Contains(res.Replies[0], "加入黑名单") {
		t.Errorf("want one addition reply, got %v", res.Replies)
	}
}

func TestScan_ExclusionWordSuppressesExtraction(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)
	ctx := context.Background()

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "订单号12345678已处理", SenderRole: "member"})

	if len(res.Replies) != 0 || len(res.Added) != 0 {
		t.Errorf("exclusion word should suppress scanning, got replies=%v added=%v", res.Replies, res.Added)
	}
	if store.Contains(ctx, "12345678") {
		t.Error("no store mutation expected")
	}
}

func TestScan_UnmonitoredGroupIsNotScanned(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)

	res := s.Scan(context.Background(), Message{GroupID: 2002, Text: "扣扣 12345678", SenderRole: "member"})

	if len(res.Replies) != 0 || len(res.Added) != 0 {
		t.Errorf("unmonitored group should not be scanned, got %+v", res)
	}
}

func TestScan_ShortDigitRunsIgnored(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)

	res := s.Scan(context.Background(), Message{GroupID: 1001, Text: "电话 1234567", SenderRole: "member"})

	if len(res.Added) != 0 {
		t.Errorf("7-digit run must not be extracted, got %v", res.Added)
	}
}

func TestScan_MultipleCandidatesInOrder(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)
	ctx := context.Background()

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "12345678 和 87654321", SenderRole: "member"})

	if len(res.Added) != 2 || res.Added[0] != "12345678" || res.Added[1] != "87654321" {
		t.Fatalf("want both candidates added in order of appearance, got %v", res.Added)
	}
}

func TestScan_DuplicateCandidateGetsAlreadyListedReply(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)
	ctx := context.Background()

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "12345678 12345678", SenderRole: "member"})

	if len(res.Added) != 1 {
		t.Fatalf("duplicate within one message should be added once, got %v", res.Added)
	}
	if len(res.Replies) != 2 {
		t.Fatalf("want two replies (added, already listed), got %v", res.Replies)
	}
	if !strings.Contains(res.Replies[1], "已在黑名单") {
		t.Errorf("second occurrence should get an already-listed reply, got %q", res.Replies[1])
	}
}

func TestScan_AlreadyBlacklistedIdentifier(t *testing.T) {
	store := blacklist.NewMemoryStore()
	ctx := context.Background()
	store.Add(ctx, "12345678")
	s := newTestScanner(store)

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "12345678", SenderRole: "member"})

	if len(res.Added) != 0 {
		t.Errorf("no add expected, got %v", res.Added)
	}
	if len(res.Replies) != 1 || !strings.Contains(res.Replies[0], "已在黑名单") {
		t.Errorf("want already-listed reply, got %v", res.Replies)
	}
}

// faultyStore fails Add for one specific identifier.
type faultyStore struct {
	blacklist.Store
	failOn string
}

func (f *faultyStore) Add(ctx context.Context, id string) bool {
	if id == f.failOn {
		return false
	}
	return f.Store.Add(ctx, id)
}

func TestScan_AddFailureDoesNotAbortRemainingCandidates(t *testing.T) {
	mem := blacklist.NewMemoryStore()
	store := &faultyStore{Store: mem, failOn: "12345678"}
	s := New(testConfig(), store, zap.NewNop())
	ctx := context.Background()

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "12345678 87654321", SenderRole: "member"})

	if len(res.Added) != 1 || res.Added[0] != "87654321" {
		t.Fatalf("second candidate should still be processed, got %v", res.Added)
	}
	if !mem.Contains(ctx, "87654321") {
		t.Error("second candidate should be in the store")
	}
}

func TestScan_RemoveCommandFromNonAdmin(t *testing.T) {
	store := blacklist.NewMemoryStore()
	ctx := context.Background()
	store.Add(ctx, "12345678")
	s := newTestScanner(store)

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "删除黑名单 12345678", SenderRole: "member"})

	if len(res.Replies) != 1 || !strings.Contains(res.Replies[0], "管理员") {
		t.Fatalf("want a permission-denied reply, got %v", res.Replies)
	}
	if !store.Contains(ctx, "12345678") {
		t.Error("identifier must remain in the store")
	}
}

func TestScan_RemoveCommandAbsentIdentifier(t *testing.T) {
	store := blacklist.NewMemoryStore()
	s := newTestScanner(store)

	res := s.Scan(context.Background(), Message{GroupID: 1001, Text: "删除黑名单 99999999", SenderRole: "admin"})

	if len(res.Replies) != 1 || !strings.Contains(res.Replies[0], "不在黑名单") {
		t.Fatalf("want a not-in-blacklist reply, got %v", res.Replies)
	}
	if len(res.Removed) != 0 {
		t.Errorf("no store mutation expected, got %v", res.Removed)
	}
}

func TestScan_RemoveCommandFromAdmin(t *testing.T) {
	store := blacklist.NewMemoryStore()
	ctx := context.Background()
	store.Add(ctx, "12345678")

	for _, role := range []string{"admin", "owner"} {
		store.Add(ctx, "12345678")
		s := newTestScanner(store)

		res := s.Scan(ctx, Message{GroupID: 1001, Text: "删除黑名单 12345678", SenderRole: role})

		if len(res.Removed) != 1 || res.Removed[0] != "12345678" {
			t.Fatalf("role %s: want removal, got %v", role, res.Removed)
		}
		if store.Contains(ctx, "12345678") {
			t.Errorf("role %s: identifier should be gone", role)
		}
	}
}

// The removal command must not fall through into identifier extraction,
// even in a monitored group where the target would otherwise be re-added.
func TestScan_RemoveCommandDoesNotFallThroughToExtraction(t *testing.T) {
	store := blacklist.NewMemoryStore()
	ctx := context.Background()
	store.Add(ctx, "12345678")
	s := newTestScanner(store)

	res := s.Scan(ctx, Message{GroupID: 1001, Text: "删除黑名单 12345678", SenderRole: "admin"})

	if store.Contains(ctx, "12345678") {
		t.Error("identifier must not be re-added by extraction after removal")
	}
	if len(res.Replies) != 1 {
		t.Errorf("want only the removal reply, got %v", res.Replies)
	}
	if len(res.Added) != 0 {
		t.Errorf("no adds expected, got %v", res.Added)
	}
}

func TestScan_RemoveCommandGrammarIsAnchored(t *testing.T) {
	store := blacklist.NewMemoryStore()
	ctx := context.Background()
	store.Add(ctx, "12345678")
	s := newTestScanner(store)

	// Trailing text means this is not the removal command; in a monitored
	// group the digits are treated as a scan candidate instead.
	res := s.Scan(ctx, Message{GroupID: 1001, Text: "删除黑名单 12345678 谢谢", SenderRole: "admin"})

	if len(res.Removed) != 0 {
		t.Errorf("unanchored text must not trigger removal, got %v", res.Removed)
	}
	if !store.Contains(ctx, "12345678") {
		t.Error("identifier should still be present")
	}
	if len(res.Replies) != 1 || !strings.Contains(res.Replies[0], "已在黑名单") {
		t.Errorf("digits should be scanned as a candidate, got %v", res.Replies)
	}
}
