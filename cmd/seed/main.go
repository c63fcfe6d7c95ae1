// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev owner (dev@gymdesk.local) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"gymdesk/backend/internal/config"
	"gymdesk/backend/internal/db"
	memberdomain "gymdesk/backend/internal/member/domain"
	memberrepo "gymdesk/backend/internal/member/repository"
	membershipdomain "gymdesk/backend/internal/membership/domain"
	membershiprepo "gymdesk/backend/internal/membership/repository"
	ownerdomain "gymdesk/backend/internal/owner/domain"
	ownerrepo "gymdesk/backend/internal/owner/repository"
	policydomain "gymdesk/backend/internal/policy/domain"
	policyrepo "gymdesk/backend/internal/policy/repository"
	"gymdesk/backend/internal/security"
)

// weekOutPolicy is a sample owner override: remind a week out, active members only.
const weekOutPolicy = `package gymdesk.reminders

default send_reminder = false

send_reminder if {
	input.membership.days_left >= 0
	input.membership.days_left <= 7
	input.member.status == "active"
}
`

const (
	devOwnerEmail = "dev@gymdesk.local"
	devPassword   = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	owners := ownerrepo.NewPostgresRepository(conn)
	members := memberrepo.NewPostgresRepository(conn)
	transactions := membershiprepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := owners.GetByEmail(ctx, devOwnerEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@gymdesk.local exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	owner := &ownerdomain.Owner{
		ID:               uuid.NewString(),
		Email:            devOwnerEmail,
		GymName:          "Iron Temple",
		Phone:            "919876500000",
		PhoneVerified:    true,
		PasswordHash:     passwordHash,
		RemindDaysBefore: 3,
		Status:           ownerdomain.OwnerStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := owner.Validate(); err != nil {
		log.Fatalf("owner: %v", err)
	}
	if err := owners.Create(ctx, owner); err != nil {
		log.Fatalf("create owner: %v", err)
	}

	seedMembers := []*memberdomain.Member{
		{
			ID: uuid.NewString(), OwnerID: owner.ID,
			Name: "Asha Pillai", Phone: "919876500001", Email: "asha@example.com",
			Status: memberdomain.MemberStatusActive,
			JoinedAt: now.AddDate(0, -6, 0), CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: uuid.NewString(), OwnerID: owner.ID,
			Name: "Rahul Nair", Phone: "919876500002",
			Status: memberdomain.MemberStatusActive,
			JoinedAt: now.AddDate(0, -2, 0), CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: uuid.NewString(), OwnerID: owner.ID,
			Name: "Jose Kurian", Phone: "919876500003", Notes: "prefers evening slots",
			Status: memberdomain.MemberStatusInactive,
			JoinedAt: now.AddDate(-1, 0, 0), CreatedAt: now, UpdatedAt: now,
		},
	}
	for _, m := range seedMembers {
		if err := m.Validate(); err != nil {
			log.Fatalf("member %s: %v", m.ID, err)
		}
		if err := members.Create(ctx, m); err != nil {
			log.Fatalf("create member %s: %v", m.ID, err)
		}
	}

	// One active period, one expiring in two days (exercises the reminder
	// scheduler), one long lapsed.
	seedTxs := []*membershipdomain.Transaction{
		{
			ID: uuid.NewString(), OwnerID: owner.ID, MemberID: seedMembers[0].ID,
			PlanMonths: 3, Amount: 450000, Method: "upi",
			StartsAt: now.AddDate(0, -1, 0), ExpiresAt: now.AddDate(0, 2, 0), CreatedAt: now,
		},
		{
			ID: uuid.NewString(), OwnerID: owner.ID, MemberID: seedMembers[1].ID,
			PlanMonths: 1, Amount: 160000, Method: "cash",
			StartsAt: now.AddDate(0, -1, 2), ExpiresAt: now.AddDate(0, 0, 2), CreatedAt: now,
		},
		{
			ID: uuid.NewString(), OwnerID: owner.ID, MemberID: seedMembers[2].ID,
			PlanMonths: 12, Amount: 1500000, Method: "card",
			StartsAt: now.AddDate(-1, -3, 0), ExpiresAt: now.AddDate(0, -3, 0), CreatedAt: now.AddDate(-1, -3, 0),
		},
	}
	for _, tx := range seedTxs {
		if err := tx.Validate(); err != nil {
			log.Fatalf("transaction %s: %v", tx.ID, err)
		}
		if err := transactions.Create(ctx, tx); err != nil {
			log.Fatalf("create transaction %s: %v", tx.ID, err)
		}
	}

	policy := &policydomain.Policy{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Name:      "remind a week early",
		Rego:      weekOutPolicy,
		Enabled:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := policy.Validate(); err != nil {
		log.Fatalf("policy: %v", err)
	}
	if err := policies.Create(ctx, policy); err != nil {
		log.Fatalf("create policy: %v", err)
	}

	log.Println("Seed complete:")
	log.Printf("  owner:    %s / %s", devOwnerEmail, devPassword)
	log.Printf("  members:  %d (one membership expiring in 2 days)", len(seedMembers))
}
