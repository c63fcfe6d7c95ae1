package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	membershipdomain "gymdesk/backend/internal/membership/domain"
	"gymdesk/backend/internal/policy/engine"
)

// lookahead bounds how far ahead of expiry the scheduler considers a
// membership; owner reminder windows larger than this are clipped.
const lookahead = 30 * 24 * time.Hour

// dedupTTL keeps a claimed reminder key alive long enough to cover the whole
// calendar day plus clock skew between replicas.
const dedupTTL = 36 * time.Hour

// ExpiringSource lists memberships close to expiry.
type ExpiringSource interface {
	ListExpiring(ctx context.Context, from, to time.Time) ([]*membershipdomain.ExpiringMembership, error)
}

// Messenger delivers a text to a phone number over the shared session.
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

// AuditSink records sent reminders in the audit trail. May be nil.
type AuditSink interface {
	LogEvent(ctx context.Context, ownerID, actorID, action, resource, metadata string)
}

// Scheduler periodically scans for expiring memberships, asks the policy
// engine whether each one gets a reminder, and sends the texts. The dedup
// key is claimed before sending so replicas never double-text a member; a
// send that fails after the claim is dropped until the key expires.
type Scheduler struct {
	source    ExpiringSource
	evaluator engine.Evaluator
	dedup     Deduper
	messenger Messenger
	auditLog  AuditSink
	interval  time.Duration
	log       *zap.Logger
	nowF      func() time.Time
}

func NewScheduler(source ExpiringSource, evaluator engine.Evaluator, dedup Deduper, messenger Messenger, auditLog AuditSink, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		source:    source,
		evaluator: evaluator,
		dedup:     dedup,
		messenger: messenger,
		auditLog:  auditLog,
		interval:  interval,
		log:       log.Named("reminder"),
		nowF:      time.Now,
	}
}

// Run blocks until ctx is canceled, running one pass per interval. The first
// pass happens immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("reminder pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single reminder pass.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.nowF().UTC()
	expiring, err := s.source.ListExpiring(ctx, now, now.Add(lookahead))
	if err != nil {
		return fmt.Errorf("list expiring memberships: %w", err)
	}
	for _, m := range expiring {
		s.process(ctx, m, now)
	}
	return nil
}

func (s *Scheduler) process(ctx context.Context, m *membershipdomain.ExpiringMembership, now time.Time) {
	daysLeft := int(m.ExpiresAt.Sub(now).Hours() / 24)
	result, err := s.evaluator.EvaluateReminder(ctx, m, daysLeft)
	if err != nil {
		s.log.Warn("policy evaluation failed",
			zap.String("transaction_id", m.TransactionID), zap.Error(err))
		return
	}
	if !result.SendReminder {
		return
	}

	key := fmt.Sprintf("reminder:%s:%s", m.TransactionID, now.Format("2006-01-02"))
	won, err := s.dedup.Claim(ctx, key, dedupTTL)
	if err != nil {
		s.log.Warn("dedup claim failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !won {
		return
	}

	text := fmt.Sprintf("Hi %s, your membership at %s expires on %s. Renew at the front desk to keep training!",
		m.MemberName, m.GymName, m.ExpiresAt.Format("02 Jan 2006"))
	if err := s.messenger.Send(ctx, m.MemberPhone, text); err != nil {
		s.log.Warn("reminder not delivered",
			zap.String("member_id", m.MemberID), zap.Error(err))
		return
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, m.OwnerID, "", "send", "reminder", m.TransactionID)
	}
	s.log.Info("reminder sent",
		zap.String("member_id", m.MemberID),
		zap.Int("days_left", daysLeft))
}
