package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paymob-integration/internal/client"
	"paymob-integration/internal/model"
)

func newOrderRepo(t *testing.T) OrderRepository {
	t.Helper()
	db, err := client.InitDB("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	return NewOrderRepository(db)
}

func testOrder(key string) *model.Order {
	return &model.Order{
		IdempotencyKey: key,
		Component:      "enrol_fee",
		PaymentArea:    "fee",
		ItemID:         7,
		UserID:         1009,
		AccountID:      1,
		Currency:       "EGP",
		AmountCents:    2050,
		Status:         model.StatusNew,
	}
}

func TestUpdateStatusFromIsCompareAndSwap(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	order := testOrder("cas-1")
	require.NoError(t, repo.Create(ctx, nil, order))

	require.NoError(t, repo.UpdateStatusFrom(ctx, nil, order.ID, model.StatusNew, model.StatusPending))

	// A second writer still holding the old status loses.
	err := repo.UpdateStatusFrom(ctx, nil, order.ID, model.StatusNew, model.StatusFailed)
	require.ErrorIs(t, err, ErrStatusConflict)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestSetPmOrderIDIsImmutable(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	order := testOrder("pmid-1")
	require.NoError(t, repo.Create(ctx, nil, order))

	require.NoError(t, repo.SetPmOrderID(ctx, order.ID, "219517631"))

	// The join key never changes once set.
	err := repo.SetPmOrderID(ctx, order.ID, "999999999")
	require.ErrorIs(t, err, ErrStatusConflict)
	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "219517631", stored.PmOrderID)

	byPm, err := repo.FindByPmOrderID(ctx, "219517631")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byPm.ID)
}

func TestFindReusableWindow(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	stale := testOrder("stale")
	stale.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, nil, stale))

	fresh := testOrder("fresh")
	require.NoError(t, repo.Create(ctx, nil, fresh))

	registered := testOrder("registered")
	registered.Status = model.StatusIntended
	require.NoError(t, repo.Create(ctx, nil, registered))

	got, err := repo.FindReusable(ctx, "enrol_fee", "fee", 7, 1009, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	// Only the fresh order still in status new qualifies.
	assert.Equal(t, fresh.ID, got.ID)

	_, err = repo.FindReusable(ctx, "enrol_fee", "fee", 7, 9999, time.Now().Add(-15*time.Minute))
	assert.Error(t, err)
}

func TestNotesNewestFirst(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	order := testOrder("notes-1")
	require.NoError(t, repo.Create(ctx, nil, order))

	require.NoError(t, repo.AddNote(ctx, nil, &model.OrderNote{OrderID: order.ID, TransactionID: 100}))
	require.NoError(t, repo.AddNote(ctx, nil, &model.OrderNote{OrderID: order.ID, TransactionID: 200}))

	notes, err := repo.Notes(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, int64(200), notes[0].TransactionID)
	assert.Equal(t, int64(100), notes[1].TransactionID)
}
