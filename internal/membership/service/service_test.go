package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	memberdomain "gymdesk/backend/internal/member/domain"
	"gymdesk/backend/internal/membership/domain"
)

type fakeTxRepo struct {
	mu  sync.Mutex
	txs []*domain.Transaction
}

func (r *fakeTxRepo) Create(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txs = append(r.txs, &cp)
	return nil
}

func (r *fakeTxRepo) LatestByMember(_ context.Context, ownerID, memberID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Transaction
	for _, t := range r.txs {
		if t.OwnerID != ownerID || t.MemberID != memberID {
			continue
		}
		if latest == nil || t.ExpiresAt.After(latest.ExpiresAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeTxRepo) ListByMember(_ context.Context, ownerID, memberID string) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range r.txs {
		if t.OwnerID == ownerID && t.MemberID == memberID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTxRepo) Revenue(_ context.Context, ownerID string, from, to time.Time) (int64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	var count int
	for _, t := range r.txs {
		if t.OwnerID == ownerID && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			total += t.Amount
			count++
		}
	}
	return total, count, nil
}

func (r *fakeTxRepo) ListExpiring(_ context.Context, from, to time.Time) ([]*domain.ExpiringMembership, error) {
	return nil, nil
}

type fakeMemberLookup struct {
	members map[string]*memberdomain.Member
}

func (r *fakeMemberLookup) GetByID(_ context.Context, ownerID, id string) (*memberdomain.Member, error) {
	if m, ok := r.members[id]; ok && m.OwnerID == ownerID {
		return m, nil
	}
	return nil, nil
}

type fakeOwnerInfo struct {
	phone, gymName string
}

func (o *fakeOwnerInfo) ContactInfo(_ context.Context, _ string) (string, string, error) {
	return o.phone, o.gymName, nil
}

type captureMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *captureMessenger) Send(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, recipient+"|"+text)
	return nil
}

func newTestService(repo *fakeTxRepo, messenger *captureMessenger, now time.Time) *Service {
	members := &fakeMemberLookup{members: map[string]*memberdomain.Member{
		"member-1": {ID: "member-1", OwnerID: "owner-1", Name: "Asha Rao", Phone: "919876543210"},
	}}
	owners := &fakeOwnerInfo{phone: "911111111111", gymName: "Iron Temple"}
	svc := New(repo, members, owners, messenger, zap.NewNop())
	svc.nowF = func() time.Time { return now }
	return svc
}

func TestRecordFirstMembership(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{}
	messenger := &captureMessenger{}
	svc := newTestService(repo, messenger, now)

	tx, err := svc.Record(context.Background(), "owner-1", RecordInput{
		MemberID:   "member-1",
		PlanMonths: 3,
		Amount:     150000,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !tx.StartsAt.Equal(now) {
		t.Fatalf("StartsAt = %v, want now", tx.StartsAt)
	}
	if want := now.AddDate(0, 3, 0); !tx.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", tx.ExpiresAt, want)
	}
	if tx.Method != "cash" {
		t.Fatalf("Method = %q, want default cash", tx.Method)
	}

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	if len(messenger.sent) != 2 {
		t.Fatalf("confirmations = %v, want member and owner", messenger.sent)
	}
	if !strings.HasPrefix(messenger.sent[0], "919876543210|") {
		t.Fatalf("first confirmation went to %q", messenger.sent[0])
	}
	if !strings.HasPrefix(messenger.sent[1], "911111111111|") {
		t.Fatalf("second confirmation went to %q", messenger.sent[1])
	}
}

func TestRecordRenewalExtendsActivePeriod(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{}
	svc := newTestService(repo, &captureMessenger{}, now)
	ctx := context.Background()

	first, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 50000})
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	// Renew two weeks in, while the first period is still running.
	svc.nowF = func() time.Time { return now.AddDate(0, 0, 14) }
	second, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 50000})
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if !second.StartsAt.Equal(first.ExpiresAt) {
		t.Fatalf("renewal StartsAt = %v, want previous expiry %v", second.StartsAt, first.ExpiresAt)
	}
}

func TestRecordAfterLapseStartsNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{}
	svc := newTestService(repo, &captureMessenger{}, now)
	ctx := context.Background()

	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 50000}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	// Renew two months later, well past expiry.
	later := now.AddDate(0, 2, 0)
	svc.nowF = func() time.Time { return later }
	tx, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 50000})
	if err != nil {
		t.Fatalf("lapsed Record: %v", err)
	}
	if !tx.StartsAt.Equal(later) {
		t.Fatalf("lapsed renewal StartsAt = %v, want %v", tx.StartsAt, later)
	}
}

func TestRecordSurvivesMessengerFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{}
	svc := newTestService(repo, &captureMessenger{err: errors.New("session down")}, now)

	if _, err := svc.Record(context.Background(), "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 50000}); err != nil {
		t.Fatalf("Record with failing messenger: %v", err)
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(repo.txs))
	}
}

func TestRecordValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeTxRepo{}, &captureMessenger{}, now)
	ctx := context.Background()

	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 0, Amount: 100}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero months: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative amount: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "ghost", PlanMonths: 1, Amount: 100}); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("unknown member: err = %v, want ErrMemberNotFound", err)
	}
	if _, err := svc.Record(ctx, "owner-2", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 100}); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("cross-owner member: err = %v, want ErrMemberNotFound", err)
	}
}

func TestRevenue(t *testing.T) {
	now := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{}
	svc := newTestService(repo, &captureMessenger{}, now)
	ctx := context.Background()

	svc.nowF = func() time.Time { return time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) }
	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 50000}); err != nil {
		t.Fatal(err)
	}
	svc.nowF = func() time.Time { return time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC) }
	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 60000}); err != nil {
		t.Fatal(err)
	}

	svc.nowF = func() time.Time { return now }
	report, err := svc.Revenue(ctx, "owner-1",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if report.Total != 50000 || report.Count != 1 {
		t.Fatalf("windowed report = %+v", report)
	}

	open, err := svc.Revenue(ctx, "owner-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("Revenue to now: %v", err)
	}
	if open.Total != 110000 || open.Count != 2 {
		t.Fatalf("open-ended report = %+v", open)
	}

	if _, err := svc.Revenue(ctx, "owner-1", now, now); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty range: err = %v, want ErrValidation", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{}
	svc := newTestService(repo, &captureMessenger{}, now)
	ctx := context.Background()

	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 100}); err != nil {
		t.Fatal(err)
	}
	svc.nowF = func() time.Time { return now.AddDate(0, 1, 0) }
	if _, err := svc.Record(ctx, "owner-1", RecordInput{MemberID: "member-1", PlanMonths: 1, Amount: 200}); err != nil {
		t.Fatal(err)
	}

	txs, err := svc.History(ctx, "owner-1", "member-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(txs) != 2 || txs[0].Amount != 200 {
		t.Fatalf("history = %+v", txs)
	}
}
