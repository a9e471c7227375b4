//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	bidpostgres "github.com/harborline/rfq-engine/internal/domains/bidding/adapters/persistence/postgres"
	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
	platformpostgres "github.com/harborline/rfq-engine/internal/platform/postgres"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("rfq_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Connecting through the platform helper keeps TranslateError on, which
	// the repository relies on to map unique violations.
	db, err := platformpostgres.Connect(ctx, dsn)
	require.NoError(t, err)

	err = bidpostgres.Migrate(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func createRFQ(t *testing.T, repo *bidpostgres.Repository) *domain.RFQ {
	t.Helper()
	// References carry a unique index, so every fixture gets its own.
	rfq, err := domain.NewRFQ("buyer-1", "RFQ-"+uuid.NewString()[:8], "Steel beams Q2", "USD")
	require.NoError(t, err)
	err = rfq.ReplaceLineItems([]domain.LineItem{
		{Description: "I-beam 6m", Quantity: decimal.NewFromInt(100), Unit: "pcs"},
		{Description: "Plate 10mm", Quantity: decimal.NewFromInt(50), Unit: "pcs"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateRFQ(context.Background(), rfq))
	return rfq
}

func TestPostgresRepository_RFQRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)

	retrieved, err := repo.GetRFQ(ctx, rfq.ID)
	require.NoError(t, err)
	assert.Equal(t, "Steel beams Q2", retrieved.Title)
	assert.Equal(t, domain.StatusDraft, retrieved.Status)
	assert.Equal(t, "USD", retrieved.Currency)
	require.Len(t, retrieved.LineItems, 2)
	assert.Equal(t, 1, retrieved.LineItems[0].LineNumber)
	assert.True(t, retrieved.LineItems[0].Quantity.Equal(decimal.NewFromInt(100)))

	retrieved.Status = domain.StatusPublished
	require.NoError(t, repo.UpdateRFQ(ctx, retrieved))

	again, err := repo.GetRFQ(ctx, rfq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, again.Status)

	_, err = repo.GetRFQ(ctx, uuid.New())
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestPostgresRepository_DeleteRFQ(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)

	require.NoError(t, repo.DeleteRFQ(ctx, rfq.ID))

	_, err := repo.GetRFQ(ctx, rfq.ID)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	err = repo.DeleteRFQ(ctx, rfq.ID)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestPostgresRepository_TransactRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)

	boom := errors.New("boom")
	err := repo.Transact(ctx, func(tx ports.Repository) error {
		loaded, err := tx.GetRFQForUpdate(ctx, rfq.ID)
		if err != nil {
			return err
		}
		loaded.Status = domain.StatusPublished
		if err := tx.UpdateRFQ(ctx, loaded); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetRFQ(ctx, rfq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
}

func TestPostgresRepository_InvitationUniquePair(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)

	inv := domain.NewInvitation(rfq.ID, "sup-a", nil)
	require.NoError(t, repo.CreateInvitation(ctx, inv))

	dup := domain.NewInvitation(rfq.ID, "sup-a", nil)
	err := repo.CreateInvitation(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateInvitation)

	other := domain.NewInvitation(rfq.ID, "sup-b", nil)
	require.NoError(t, repo.CreateInvitation(ctx, other))

	all, err := repo.ListInvitations(ctx, rfq.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPostgresRepository_ActiveQuotesAreThreadHeads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)
	threadID := uuid.New()

	v1 := &domain.Quote{
		ID: uuid.New(), ThreadID: threadID, RFQID: rfq.ID, SupplierOrgID: "sup-a",
		Version: 1, Status: domain.QuoteRevised, Currency: "USD",
		TotalAmount: decimal.NewFromInt(500), SubmittedAt: time.Now().UTC(),
		LineItems: []domain.QuoteLineItem{{
			ID: uuid.New(), RFQLineItemID: rfq.LineItems[0].ID,
			UnitPrice: decimal.NewFromInt(5), Quantity: decimal.NewFromInt(100),
			Subtotal: decimal.NewFromInt(500),
		}},
	}
	require.NoError(t, repo.CreateQuote(ctx, v1))

	v2 := &domain.Quote{
		ID: uuid.New(), ThreadID: threadID, RFQID: rfq.ID, SupplierOrgID: "sup-a",
		Version: 2, Status: domain.QuoteSubmitted, Currency: "USD",
		TotalAmount: decimal.NewFromInt(450), SubmittedAt: time.Now().UTC(),
		LineItems: []domain.QuoteLineItem{{
			ID: uuid.New(), RFQLineItemID: rfq.LineItems[0].ID,
			UnitPrice: decimal.NewFromFloat(4.5), Quantity: decimal.NewFromInt(100),
			Subtotal: decimal.NewFromInt(450),
		}},
	}
	require.NoError(t, repo.CreateQuote(ctx, v2))

	active, err := repo.ListActiveQuotes(ctx, rfq.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Version)
	assert.True(t, active[0].TotalAmount.Equal(decimal.NewFromInt(450)))
	require.Len(t, active[0].LineItems, 1)

	head, err := repo.GetThreadHeadForUpdate(ctx, threadID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, head.ID)

	found, err := repo.FindActiveQuoteBySupplier(ctx, rfq.ID, "sup-a")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, found.ID)

	thread, err := repo.GetThread(ctx, threadID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, 1, thread[0].Version)
	assert.Equal(t, 2, thread[1].Version)
}

func TestPostgresRepository_ListDueForClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := createRFQ(t, repo)
	overdue.Status = domain.StatusBiddingOpen
	deadline := now.Add(-time.Hour)
	overdue.BiddingDeadline = &deadline
	require.NoError(t, repo.UpdateRFQ(ctx, overdue))

	open := createRFQ(t, repo)
	open.Status = domain.StatusBiddingOpen
	future := now.Add(time.Hour)
	open.BiddingDeadline = &future
	require.NoError(t, repo.UpdateRFQ(ctx, open))

	due, err := repo.ListDueForClose(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, overdue.ID, due[0])
}

func TestPostgresRepository_TransitionAudit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)

	require.NoError(t, repo.AppendTransition(ctx, domain.NewTransitionRecord(
		rfq.ID, domain.StatusDraft, domain.StatusPublished,
		domain.TransitionPublish, domain.TriggerUser, "buyer-1", "")))
	require.NoError(t, repo.AppendTransition(ctx, domain.NewTransitionRecord(
		rfq.ID, domain.StatusPublished, domain.StatusBiddingOpen,
		domain.TransitionOpenBidding, domain.TriggerUser, "buyer-1", "")))

	records, err := repo.ListTransitions(ctx, rfq.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.TransitionPublish, records[0].Type)
	assert.Equal(t, domain.TransitionOpenBidding, records[1].Type)
}

func TestPostgresRepository_Outbox(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := bidpostgres.NewRepository(db)
	ctx := context.Background()

	rfq := createRFQ(t, repo)

	first := domain.NewEvent(domain.EventRFQPublished, rfq.ID, domain.StatusPublished)
	second := domain.NewEvent(domain.EventBiddingOpened, rfq.ID, domain.StatusBiddingOpen)
	require.NoError(t, repo.AppendEvents(ctx, first, second))

	pending, err := repo.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, repo.MarkDispatched(ctx, first.ID))

	pending, err = repo.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
