package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"comanda-system/internal/domain"
	"comanda-system/internal/settlement/repository"
	"comanda-system/internal/settlement/service"
)

type SettlementHandler struct {
	service service.SettlementServiceInterface
}

func NewSettlementHandler(s service.SettlementServiceInterface) *SettlementHandler {
	return &SettlementHandler{service: s}
}

// Router wires the settlement API. The history GET is wrapped by the cache
// middleware when a Redis client is available.
func Router(h *SettlementHandler, cache *Cache) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/comandas", h.CreateComanda)
	mux.HandleFunc("GET /api/v1/cashier/tables/{table}/order", h.OrderByTable)
	mux.HandleFunc("POST /api/v1/cashier/payments", h.CommitPayment)
	mux.Handle("GET /api/v1/cashier/payments", cache.Wrap(http.HandlerFunc(h.History)))
	return mux
}

func (h *SettlementHandler) CreateComanda(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	resp, err := h.service.CreateComanda(r.Context(), req)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid_comanda", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SettlementHandler) OrderByTable(w http.ResponseWriter, r *http.Request) {
	table, err := strconv.Atoi(param(r, "table"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_table", "table must be a number")
		return
	}
	detail, err := h.service.OrderByTable(r.Context(), table)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTable) {
			writeProblem(w, http.StatusBadRequest, "invalid_table", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if detail == nil {
		writeProblem(w, http.StatusNotFound, "no_open_order", domain.ErrNoOpenOrder.Error())
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *SettlementHandler) CommitPayment(w http.ResponseWriter, r *http.Request) {
	var commit domain.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&commit); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	resp, err := h.service.CommitPayment(r.Context(), commit)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, repository.ErrComandaNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrComandaClosed):
		writeProblem(w, http.StatusConflict, "already_settled", err.Error())
	case errors.Is(err, service.ErrInvalidPayment),
		errors.Is(err, service.ErrTenderRequired),
		errors.Is(err, service.ErrAmountMismatch):
		writeProblem(w, http.StatusUnprocessableEntity, "invalid_payment", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
	}
}

func (h *SettlementHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.HistoryFilter{
		Table:  atoiDefault(q.Get("mesa"), 0),
		Method: domain.PaymentMethod(q.Get("metodo_pago")),
		Limit:  atoiDefault(q.Get("limit"), 50),
	}
	if v := q.Get("desde"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid_filter", "desde must be YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if v := q.Get("hasta"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid_filter", "hasta must be YYYY-MM-DD")
			return
		}
		// Inclusive end date: filter up to the following midnight.
		t = t.AddDate(0, 0, 1)
		filter.To = &t
	}
	if filter.Method != "" && !filter.Method.Valid() {
		writeProblem(w, http.StatusBadRequest, "invalid_filter", "unknown metodo_pago")
		return
	}

	payments, err := h.service.History(r.Context(), filter)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if payments == nil {
		payments = []domain.PaymentRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}
