package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	membershipdomain "gymdesk/backend/internal/membership/domain"
	"gymdesk/backend/internal/policy/repository"
)

const reminderQuery = "data.gymdesk.reminders.send_reminder"

// Default Rego policy: remind active members inside the owner's reminder
// window, and skip members already past expiry (the renewal flow covers
// those).
const defaultRegoPolicy = `package gymdesk.reminders

default send_reminder = false

send_reminder if {
	input.membership.days_left >= 0
	input.membership.days_left <= input.owner.remind_days_before
	input.member.status == "active"
}
`

// OPAEvaluator evaluates reminder policies using OPA Rego. Owner-specific
// policies from the repository override the default; evaluation failures fall
// back to not sending, so a broken policy can never spam members.
type OPAEvaluator struct {
	policyRepo repository.Repository
	log        *zap.Logger
}

func NewOPAEvaluator(policyRepo repository.Repository, log *zap.Logger) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo, log: log.Named("policy_engine")}
}

// HealthCheck verifies that the in-process Rego engine can compile and
// evaluate the default policy. Does not touch the database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	input := buildInput(&membershipdomain.ExpiringMembership{MemberStatus: "active", RemindDays: 3}, 2)
	result, err := evaluate(ctx, []string{defaultRegoPolicy}, input)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if !result.SendReminder {
		return fmt.Errorf("default policy rejected a reminder inside the window")
	}
	return nil
}

func (e *OPAEvaluator) EvaluateReminder(ctx context.Context, m *membershipdomain.ExpiringMembership, daysLeft int) (ReminderResult, error) {
	policies := []string{defaultRegoPolicy}
	ownerPolicies, err := e.policyRepo.GetEnabledByOwner(ctx, m.OwnerID)
	if err != nil {
		e.log.Warn("loading owner policies failed, using default",
			zap.String("owner_id", m.OwnerID), zap.Error(err))
	} else if len(ownerPolicies) > 0 {
		policies = policies[:0]
		for _, p := range ownerPolicies {
			policies = append(policies, p.Rego)
		}
	}

	result, err := evaluate(ctx, policies, buildInput(m, daysLeft))
	if err != nil {
		e.log.Warn("policy evaluation failed, skipping reminder",
			zap.String("owner_id", m.OwnerID), zap.Error(err))
		return ReminderResult{SendReminder: false}, nil
	}
	return result, nil
}

func buildInput(m *membershipdomain.ExpiringMembership, daysLeft int) map[string]interface{} {
	return map[string]interface{}{
		"owner": map[string]interface{}{
			"id":                 m.OwnerID,
			"remind_days_before": m.RemindDays,
		},
		"member": map[string]interface{}{
			"id":     m.MemberID,
			"status": m.MemberStatus,
		},
		"membership": map[string]interface{}{
			"transaction_id": m.TransactionID,
			"days_left":      daysLeft,
		},
	}
}

func evaluate(ctx context.Context, policies []string, input map[string]interface{}) (ReminderResult, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("compile policies: %w", err)
	}

	q := rego.New(
		rego.Query(reminderQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("eval policies: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return ReminderResult{}, fmt.Errorf("policy query returned no result")
	}
	send, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return ReminderResult{}, fmt.Errorf("send_reminder is not a boolean")
	}
	return ReminderResult{SendReminder: send}, nil
}
