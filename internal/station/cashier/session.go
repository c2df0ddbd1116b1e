package cashier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"comanda-system/internal/domain"
	"comanda-system/internal/money"
)

type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateLoading    SessionState = "loading"
	StateLoaded     SessionState = "loaded"
	StateSubmitting SessionState = "submitting"
	StateCommitted  SessionState = "committed"
)

var ErrNothingLoaded = errors.New("no hay comanda cargada")

// SettlementClient is the slice of the settlement service the session needs.
// The real implementation lives in internal/client; tests inject fakes.
type SettlementClient interface {
	OrderByTable(ctx context.Context, tableID int) (*domain.OrderDetail, error)
	SubmitPayment(ctx context.Context, req domain.CommitRequest) (domain.CommitResponse, error)
}

// Session runs one table-selection at a time through
// idle -> loading -> loaded -> submitting -> committed.
//
// Selections are guarded by a generation counter: choosing a new table while
// a fetch is still in flight bumps the generation, and the stale response is
// discarded when it finally lands (last selection wins).
type Session struct {
	mu     sync.Mutex
	client SettlementClient
	ledger *TableLedger

	state  SessionState
	gen    uint64
	table  int
	detail *domain.OrderDetail
	intent money.Intent
	quote  money.Quote
	errMsg string
	notice string
}

func NewSession(client SettlementClient, ledger *TableLedger) *Session {
	return &Session{client: client, ledger: ledger, state: StateIdle, intent: money.DefaultIntent()}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Detail() *domain.OrderDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail
}

func (s *Session) Intent() money.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// Quote is recomputed on every intent change; this returns the current one.
func (s *Session) Quote() money.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote
}

func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// SelectTable fetches the open comanda at the table and loads it for payment
// review. Blocks until the fetch answers, but a concurrent re-selection
// supersedes this one and its answer is dropped.
func (s *Session) SelectTable(ctx context.Context, tableID int) {
	s.mu.Lock()
	s.gen++
	g := s.gen
	s.table = tableID
	s.state = StateLoading
	s.detail = nil
	s.errMsg = ""
	s.notice = ""
	s.mu.Unlock()

	detail, err := s.client.OrderByTable(ctx, tableID)
	s.applyLoad(g, tableID, detail, err)
}

func (s *Session) applyLoad(g uint64, tableID int, detail *domain.OrderDetail, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g != s.gen {
		return // superseded by a newer selection
	}
	switch {
	case errors.Is(err, domain.ErrNoOpenOrder):
		s.state = StateIdle
		s.notice = fmt.Sprintf("Mesa %d sin comanda abierta.", tableID)
	case err != nil:
		s.state = StateIdle
		s.errMsg = err.Error()
	default:
		s.state = StateLoaded
		s.detail = detail
		s.intent = money.DefaultIntent()
		s.quote = money.Compute(detail.RawTotal, s.intent)
	}
}

// SetTipPercent, SetMethod and SetTendered are synchronous local edits, only
// meaningful while a comanda is loaded. Each one recomputes the quote.

func (s *Session) SetTipPercent(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	s.editIntent(func(in *money.Intent) { in.TipPercent = p })
}

func (s *Session) SetMethod(m domain.PaymentMethod) {
	if !m.Valid() {
		return
	}
	s.editIntent(func(in *money.Intent) {
		in.Method = m
		if m != domain.MethodCash {
			in.Tendered = nil
		}
	})
}

func (s *Session) SetTendered(amount int64) {
	if amount < 0 {
		return
	}
	s.editIntent(func(in *money.Intent) { in.Tendered = &amount })
}

func (s *Session) editIntent(apply func(*money.Intent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded {
		return
	}
	apply(&s.intent)
	s.quote = money.Compute(s.detail.RawTotal, s.intent)
}

// Commit validates locally, submits the payment, and on success frees the
// table in the ledger and clears the loaded comanda. A failed submit keeps
// every entered value so the cashier can retry without re-typing.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoaded {
		s.mu.Unlock()
		return ErrNothingLoaded
	}
	q := money.Compute(s.detail.RawTotal, s.intent)
	if err := money.ValidateCommit(q, s.intent); err != nil {
		s.errMsg = err.Error()
		s.mu.Unlock()
		return err
	}

	req := domain.CommitRequest{
		OrderID:     s.detail.OrderID,
		TableNumber: s.detail.TableNumber,
		RawTotal:    s.detail.RawTotal,
		Tip:         q.RoundedTip,
		AmountPaid:  q.AmountDue,
		Method:      s.intent.Method,
	}
	if s.intent.Method == domain.MethodCash {
		tendered := *s.intent.Tendered
		req.Tendered = &tendered
		req.Change = q.Change
	}
	g := s.gen
	s.state = StateSubmitting
	s.errMsg = ""
	s.mu.Unlock()

	_, err := s.client.SubmitPayment(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if g != s.gen {
		return err // a newer selection owns the session now
	}
	if err != nil {
		s.state = StateLoaded
		s.errMsg = err.Error()
		return err
	}
	s.ledger.MarkSettled(req.TableNumber)
	s.state = StateCommitted
	s.detail = nil
	s.intent = money.DefaultIntent()
	s.quote = money.Quote{}
	s.notice = "Pago registrado y mesa liberada."
	return nil
}

// Reset returns the session to idle, dropping any loaded comanda. Used when
// the cashier navigates away.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateIdle
	s.detail = nil
	s.intent = money.DefaultIntent()
	s.quote = money.Quote{}
	s.errMsg = ""
	s.notice = ""
}
