package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"comanda-system/internal/domain"
)

type SettlementRepository struct {
	db *pgxpool.Pool
}

func NewSettlementRepository(db *pgxpool.Pool) SettlementRepositoryInterface {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) CreateComandaTx(ctx context.Context, tableNumber int, items []domain.LineItem) (domain.OrderDetail, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	detail := domain.OrderDetail{TableNumber: tableNumber, Items: items}
	err = tx.QueryRow(ctx, `
		INSERT INTO comandas(mesa, estado, creado_en) VALUES ($1, 'abierta', now())
		RETURNING id, creado_en
	`, tableNumber).Scan(&detail.OrderID, &detail.CreatedAt)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO comanda_items(comanda_id, nombre, cantidad, precio, subtotal, cliente_nro, notas)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, detail.OrderID, it.Name, it.Quantity, it.UnitPrice, it.Subtotal, it.CustomerLabel, it.Note); err != nil {
			return domain.OrderDetail{}, err
		}
		detail.RawTotal += it.Subtotal
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (r *SettlementRepository) OpenComandaByTable(ctx context.Context, tableNumber int) (*domain.OrderDetail, error) {
	detail := &domain.OrderDetail{TableNumber: tableNumber}
	err := r.db.QueryRow(ctx, `
		SELECT id, creado_en FROM comandas
		WHERE mesa = $1 AND estado = 'abierta'
		ORDER BY creado_en DESC LIMIT 1
	`, tableNumber).Scan(&detail.OrderID, &detail.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT nombre, cantidad, precio, subtotal, cliente_nro, notas
		FROM comanda_items WHERE comanda_id = $1 ORDER BY id
	`, detail.OrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.Name, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CustomerLabel, &it.Note); err != nil {
			return nil, err
		}
		detail.Items = append(detail.Items, it)
		detail.RawTotal += it.Subtotal
	}
	return detail, rows.Err()
}

func (r *SettlementRepository) RecordPaymentTx(ctx context.Context, commit domain.CommitRequest) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var estado string
	err = tx.QueryRow(ctx, `SELECT estado FROM comandas WHERE id = $1 FOR UPDATE`, commit.OrderID).Scan(&estado)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrComandaNotFound
	}
	if err != nil {
		return 0, err
	}
	if estado != "abierta" {
		return 0, ErrComandaClosed
	}

	if _, err := tx.Exec(ctx, `
		UPDATE comandas SET estado = 'pagada', pagado_en = now() WHERE id = $1
	`, commit.OrderID); err != nil {
		return 0, err
	}

	var paymentID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO pagos(comanda_id, mesa, total_sin_propina, propina, total_pagado, metodo_pago, monto_entregado, cambio, pagado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id
	`, commit.OrderID, commit.TableNumber, commit.RawTotal, commit.Tip, commit.AmountPaid,
		string(commit.Method), commit.Tendered, commit.Change).Scan(&paymentID)
	if err != nil {
		return 0, err
	}
	return paymentID, tx.Commit(ctx)
}

func (r *SettlementRepository) OpenTableTotals(ctx context.Context) ([]domain.TableTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.mesa, COALESCE(SUM(i.subtotal), 0)
		FROM comandas c
		JOIN comanda_items i ON i.comanda_id = c.id
		WHERE c.estado = 'abierta'
		GROUP BY c.mesa
		ORDER BY c.mesa
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.TableTotal
	for rows.Next() {
		t := domain.TableTotal{Status: domain.TableOccupied}
		if err := rows.Scan(&t.TableID, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *SettlementRepository) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.PaymentRecord, error) {
	query, args := BuildHistoryQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PaymentRecord
	for rows.Next() {
		var p domain.PaymentRecord
		var method string
		if err := rows.Scan(&p.PaymentID, &p.OrderID, &p.TableNumber, &p.RawTotal, &p.Tip,
			&p.AmountPaid, &method, &p.Tendered, &p.Change, &p.PaidAt); err != nil {
			return nil, err
		}
		p.Method = domain.PaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// BuildHistoryQuery assembles the filtered listing statement. Split out so
// the filter-to-SQL mapping is testable without a database.
func BuildHistoryQuery(filter domain.HistoryFilter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT id, comanda_id, mesa, total_sin_propina, propina, total_pagado, metodo_pago, monto_entregado, cambio, pagado_en FROM pagos`)

	var conds []string
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("pagado_en >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("pagado_en < $%d", len(args)))
	}
	if filter.Table > 0 {
		args = append(args, filter.Table)
		conds = append(conds, fmt.Sprintf("mesa = $%d", len(args)))
	}
	if filter.Method != "" {
		args = append(args, string(filter.Method))
		conds = append(conds, fmt.Sprintf("metodo_pago = $%d", len(args)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	args = append(args, limit)
	b.WriteString(fmt.Sprintf(" ORDER BY pagado_en DESC LIMIT $%d", len(args)))

	return b.String(), args
}
