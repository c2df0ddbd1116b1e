package cashier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda-system/internal/domain"
	"comanda-system/internal/money"
)

type fakeSettlement struct {
	detail    *domain.OrderDetail
	loadErr   error
	submitErr error

	submitted []domain.CommitRequest

	// When set, the first OrderByTable call blocks until the channel is
	// closed. Later calls answer immediately.
	loadGate  chan struct{}
	loadCalls int32
}

func (f *fakeSettlement) OrderByTable(ctx context.Context, tableID int) (*domain.OrderDetail, error) {
	if atomic.AddInt32(&f.loadCalls, 1) == 1 && f.loadGate != nil {
		<-f.loadGate
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	d := *f.detail
	d.TableNumber = tableID
	return &d, nil
}

func (f *fakeSettlement) SubmitPayment(ctx context.Context, req domain.CommitRequest) (domain.CommitResponse, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return domain.CommitResponse{}, f.submitErr
	}
	return domain.CommitResponse{PaymentID: 1, OrderID: req.OrderID, TableFreed: req.TableNumber}, nil
}

func detailFixture() *domain.OrderDetail {
	return &domain.OrderDetail{
		OrderID:     42,
		TableNumber: 7,
		RawTotal:    8000,
		Items: []domain.LineItem{
			{Name: "ceviche", Quantity: 1, UnitPrice: 5000, Subtotal: 5000},
			{Name: "chicha", Quantity: 1, UnitPrice: 3000, Subtotal: 3000},
		},
		CreatedAt: time.Now(),
	}
}

func TestSelectTableLoadsOrder(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))

	s.SelectTable(context.Background(), 7)

	require.Equal(t, StateLoaded, s.State())
	require.NotNil(t, s.Detail())
	assert.Equal(t, int64(42), s.Detail().OrderID)
	assert.Equal(t, money.DefaultIntent(), s.Intent(), "loading resets tip, method and tender")
	assert.Equal(t, int64(8000), s.Quote().AmountDue, "default quote has no tip")
}

func TestSelectTableWithoutOpenOrder(t *testing.T) {
	fake := &fakeSettlement{loadErr: domain.ErrNoOpenOrder}
	s := NewSession(fake, NewTableLedger(19))

	s.SelectTable(context.Background(), 4)

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Detail())
	assert.Equal(t, "Mesa 4 sin comanda abierta.", s.Notice())
	assert.Empty(t, s.ErrorMessage())
}

func TestSelectTableFetchError(t *testing.T) {
	fake := &fakeSettlement{loadErr: errors.New("connection refused")}
	s := NewSession(fake, NewTableLedger(19))

	s.SelectTable(context.Background(), 4)

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, "connection refused", s.ErrorMessage())
}

func TestLastSelectionWins(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeSettlement{detail: detailFixture(), loadGate: gate}
	s := NewSession(fake, NewTableLedger(19))

	done := make(chan struct{})
	go func() {
		s.SelectTable(context.Background(), 3)
		close(done)
	}()

	// Wait for the first fetch to be in flight, then supersede it.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fake.loadCalls) == 1
	}, time.Second, time.Millisecond)
	s.SelectTable(context.Background(), 9)

	require.Equal(t, StateLoaded, s.State())
	require.Equal(t, 9, s.Detail().TableNumber)

	// Release the stale fetch; its answer must be dropped.
	close(gate)
	<-done
	assert.Equal(t, 9, s.Detail().TableNumber, "stale response must not overwrite the newer selection")
}

func TestIntentEditsRecomputeQuote(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))
	s.SelectTable(context.Background(), 7)

	s.SetTipPercent(15)
	assert.Equal(t, int64(1200), s.Quote().RoundedTip)
	assert.Equal(t, int64(9200), s.Quote().AmountDue)

	s.SetMethod(domain.MethodCash)
	s.SetTendered(10000)
	assert.Equal(t, int64(800), s.Quote().Change)

	// Switching back to card drops the tendered amount.
	s.SetMethod(domain.MethodDebit)
	assert.Nil(t, s.Intent().Tendered)
	assert.Equal(t, int64(0), s.Quote().Change)
}

func TestIntentEditsIgnoredWhenNotLoaded(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))

	s.SetTipPercent(15)
	assert.Equal(t, money.DefaultIntent(), s.Intent())
}

func TestTipPercentIsClamped(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))
	s.SelectTable(context.Background(), 7)

	s.SetTipPercent(-5)
	assert.Equal(t, 0, s.Intent().TipPercent)
	s.SetTipPercent(250)
	assert.Equal(t, 100, s.Intent().TipPercent)
}

func TestCommitCashWithoutTenderIsRejectedLocally(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))
	s.SelectTable(context.Background(), 7)
	s.SetMethod(domain.MethodCash)

	err := s.Commit(context.Background())
	require.ErrorIs(t, err, money.ErrTenderedMissing)
	assert.Equal(t, StateLoaded, s.State())
	assert.Empty(t, fake.submitted, "invalid payment must never reach the wire")
}

func TestCommitFailureKeepsEnteredValues(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture(), submitErr: errors.New("servicio no disponible")}
	s := NewSession(fake, NewTableLedger(19))
	s.SelectTable(context.Background(), 7)
	s.SetTipPercent(10)

	err := s.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateLoaded, s.State())
	assert.Equal(t, 10, s.Intent().TipPercent, "retry must not force re-typing")
	assert.NotNil(t, s.Detail())
	assert.Equal(t, "servicio no disponible", s.ErrorMessage())
}

func TestCommitSuccess(t *testing.T) {
	ledger := NewTableLedger(19)
	ledger.Reconcile([]domain.TableTotal{{TableID: 7, Total: 8000, Status: domain.TableOccupied}})

	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, ledger)
	s.SelectTable(context.Background(), 7)
	s.SetTipPercent(15)
	s.SetMethod(domain.MethodCash)
	s.SetTendered(10000)

	require.NoError(t, s.Commit(context.Background()))

	assert.Equal(t, StateCommitted, s.State())
	assert.Nil(t, s.Detail())
	assert.Equal(t, "Pago registrado y mesa liberada.", s.Notice())

	entry, _ := ledger.Table(7)
	assert.Equal(t, domain.TableFree, entry.Status)
	assert.Equal(t, int64(0), entry.Total)

	require.Len(t, fake.submitted, 1)
	req := fake.submitted[0]
	assert.Equal(t, int64(42), req.OrderID)
	assert.Equal(t, int64(8000), req.RawTotal)
	assert.Equal(t, int64(1200), req.Tip)
	assert.Equal(t, int64(9200), req.AmountPaid)
	require.NotNil(t, req.Tendered)
	assert.Equal(t, int64(10000), *req.Tendered)
	assert.Equal(t, int64(800), req.Change)
}

func TestCommitCardOmitsTender(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))
	s.SelectTable(context.Background(), 7)
	s.SetTipPercent(10)

	require.NoError(t, s.Commit(context.Background()))

	require.Len(t, fake.submitted, 1)
	assert.Nil(t, fake.submitted[0].Tendered)
	assert.Equal(t, int64(0), fake.submitted[0].Change)
}

func TestCommitWithoutLoadedOrder(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))

	assert.ErrorIs(t, s.Commit(context.Background()), ErrNothingLoaded)
}

func TestReset(t *testing.T) {
	fake := &fakeSettlement{detail: detailFixture()}
	s := NewSession(fake, NewTableLedger(19))
	s.SelectTable(context.Background(), 7)
	s.SetTipPercent(15)

	s.Reset()

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Detail())
	assert.Equal(t, money.DefaultIntent(), s.Intent())
}
