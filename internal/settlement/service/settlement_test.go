package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda-system/internal/domain"
	"comanda-system/internal/logger"
)

// errStop cuts the flow after persistence so validation and normalization
// can be observed without a running broker.
var errStop = errors.New("stop")

type capturingRepo struct {
	createdTable int
	createdItems []domain.LineItem
	recorded     *domain.CommitRequest
}

func (r *capturingRepo) CreateComandaTx(ctx context.Context, tableNumber int, items []domain.LineItem) (domain.OrderDetail, error) {
	r.createdTable = tableNumber
	r.createdItems = items
	return domain.OrderDetail{}, errStop
}

func (r *capturingRepo) OpenComandaByTable(ctx context.Context, tableNumber int) (*domain.OrderDetail, error) {
	return &domain.OrderDetail{OrderID: 42, TableNumber: tableNumber, RawTotal: 8000}, nil
}

func (r *capturingRepo) RecordPaymentTx(ctx context.Context, commit domain.CommitRequest) (int64, error) {
	r.recorded = &commit
	return 0, errStop
}

func (r *capturingRepo) OpenTableTotals(ctx context.Context) ([]domain.TableTotal, error) {
	return nil, nil
}

func (r *capturingRepo) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.PaymentRecord, error) {
	return nil, nil
}

func newTestService(repo *capturingRepo) SettlementServiceInterface {
	return NewSettlementService(repo, nil, logger.NewWithWriter("settlement-test", io.Discard), 19)
}

func TestCreateComandaValidation(t *testing.T) {
	svc := newTestService(&capturingRepo{})
	ctx := context.Background()

	item := domain.LineItem{Name: "lomo", Quantity: 1, UnitPrice: 6000}

	_, err := svc.CreateComanda(ctx, domain.CreateOrderRequest{TableNumber: 0, Items: []domain.LineItem{item}})
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = svc.CreateComanda(ctx, domain.CreateOrderRequest{TableNumber: 20, Items: []domain.LineItem{item}})
	assert.ErrorIs(t, err, ErrInvalidTable, "table numbers beyond the grid are rejected")

	_, err = svc.CreateComanda(ctx, domain.CreateOrderRequest{TableNumber: 5})
	assert.ErrorIs(t, err, ErrNoItems)

	bad := item
	bad.Quantity = 0
	_, err = svc.CreateComanda(ctx, domain.CreateOrderRequest{TableNumber: 5, Items: []domain.LineItem{bad}})
	assert.Error(t, err)
}

func TestCreateComandaRecomputesSubtotals(t *testing.T) {
	repo := &capturingRepo{}
	svc := newTestService(repo)

	_, err := svc.CreateComanda(context.Background(), domain.CreateOrderRequest{
		TableNumber: 5,
		Items: []domain.LineItem{
			{Name: "lomo", Quantity: 2, UnitPrice: 6000, Subtotal: 99}, // client subtotal is ignored
			{Name: "jugo", Quantity: 3, UnitPrice: 1500},
		},
	})
	require.ErrorIs(t, err, errStop)

	require.Len(t, repo.createdItems, 2)
	assert.Equal(t, int64(12000), repo.createdItems[0].Subtotal)
	assert.Equal(t, int64(4500), repo.createdItems[1].Subtotal)
	assert.Equal(t, 5, repo.createdTable)
}

func TestOrderByTableRange(t *testing.T) {
	svc := newTestService(&capturingRepo{})

	_, err := svc.OrderByTable(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = svc.OrderByTable(context.Background(), 20)
	assert.ErrorIs(t, err, ErrInvalidTable)

	detail, err := svc.OrderByTable(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), detail.OrderID)
}

func validCommit() domain.CommitRequest {
	tendered := int64(10000)
	return domain.CommitRequest{
		OrderID:     42,
		TableNumber: 7,
		RawTotal:    8000,
		Tip:         1200,
		AmountPaid:  9200,
		Method:      domain.MethodCash,
		Tendered:    &tendered,
		Change:      800,
	}
}

func TestCommitPaymentValidation(t *testing.T) {
	repo := &capturingRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.CommitRequest)
		want   error
	}{
		{"missing order id", func(c *domain.CommitRequest) { c.OrderID = 0 }, ErrInvalidPayment},
		{"table out of range", func(c *domain.CommitRequest) { c.TableNumber = 25 }, ErrInvalidPayment},
		{"unknown method", func(c *domain.CommitRequest) { c.Method = "cheque" }, ErrInvalidPayment},
		{"negative tip", func(c *domain.CommitRequest) { c.Tip = -1 }, ErrInvalidPayment},
		{"amount mismatch", func(c *domain.CommitRequest) { c.AmountPaid = 9000 }, ErrAmountMismatch},
		{"cash without tender", func(c *domain.CommitRequest) { c.Tendered = nil }, ErrTenderRequired},
		{"cash short tender", func(c *domain.CommitRequest) { v := int64(9000); c.Tendered = &v }, ErrTenderRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			commit := validCommit()
			tc.mutate(&commit)
			_, err := svc.CommitPayment(ctx, commit)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Nil(t, repo.recorded, "invalid payments must never reach the database")
}

func TestCommitPaymentCardDropsTender(t *testing.T) {
	repo := &capturingRepo{}
	svc := newTestService(repo)

	commit := validCommit()
	commit.Method = domain.MethodCredit
	commit.Change = 500

	_, err := svc.CommitPayment(context.Background(), commit)
	require.ErrorIs(t, err, errStop)

	require.NotNil(t, repo.recorded)
	assert.Nil(t, repo.recorded.Tendered)
	assert.Equal(t, int64(0), repo.recorded.Change)
}
