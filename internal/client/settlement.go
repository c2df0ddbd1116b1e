// Package client talks to the settlement service over HTTP on behalf of a
// station. Server failures surface as single error values whose message is
// suitable for direct display; nothing is retried here.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"comanda-system/internal/domain"
)

type Settlement struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Settlement {
	return &Settlement{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// OrderByTable fetches the comanda currently open at a table. A table with
// nothing open is reported as domain.ErrNoOpenOrder, not a transport error.
func (c *Settlement) OrderByTable(ctx context.Context, tableID int) (*domain.OrderDetail, error) {
	u := fmt.Sprintf("%s/api/v1/cashier/tables/%d/order", c.BaseURL, tableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error al cargar comanda: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNoOpenOrder
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var detail domain.OrderDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decode order detail: %w", err)
	}
	return &detail, nil
}

// SubmitPayment posts the payment commit.
func (c *Settlement) SubmitPayment(ctx context.Context, commit domain.CommitRequest) (domain.CommitResponse, error) {
	body, err := json.Marshal(commit)
	if err != nil {
		return domain.CommitResponse{}, err
	}

	u := c.BaseURL + "/api/v1/cashier/payments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return domain.CommitResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.CommitResponse{}, fmt.Errorf("error al registrar el pago: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return domain.CommitResponse{}, apiError(resp)
	}

	var out domain.CommitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.CommitResponse{}, fmt.Errorf("decode commit response: %w", err)
	}
	return out, nil
}

// History lists settled payments, optionally filtered. Read-only.
func (c *Settlement) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.PaymentRecord, error) {
	params := url.Values{}
	if filter.From != nil {
		params.Set("desde", filter.From.Format("2006-01-02"))
	}
	if filter.To != nil {
		params.Set("hasta", filter.To.Format("2006-01-02"))
	}
	if filter.Table > 0 {
		params.Set("mesa", strconv.Itoa(filter.Table))
	}
	if filter.Method != "" {
		params.Set("metodo_pago", string(filter.Method))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	u := c.BaseURL + "/api/v1/cashier/payments"
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error al cargar historial: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out struct {
		Payments []domain.PaymentRecord `json:"payments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.Payments, nil
}

// apiError extracts the problem+json detail the handlers emit, falling back
// to the HTTP status when the body is not parseable.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Detail != "" {
			return errors.New(problem.Detail)
		}
		if problem.Title != "" {
			return errors.New(problem.Title)
		}
	}
	return fmt.Errorf("settlement service: %s", resp.Status)
}
