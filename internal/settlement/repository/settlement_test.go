package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda-system/internal/domain"
)

const historySelect = `SELECT id, comanda_id, mesa, total_sin_propina, propina, total_pagado, metodo_pago, monto_entregado, cambio, pagado_en FROM pagos`

func TestBuildHistoryQueryNoFilters(t *testing.T) {
	query, args := BuildHistoryQuery(domain.HistoryFilter{})

	assert.Equal(t, historySelect+" ORDER BY pagado_en DESC LIMIT $1", query)
	assert.Equal(t, []any{50}, args, "limit defaults to 50")
}

func TestBuildHistoryQueryAllFilters(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	query, args := BuildHistoryQuery(domain.HistoryFilter{
		From:   &from,
		To:     &to,
		Table:  7,
		Method: domain.MethodCash,
		Limit:  20,
	})

	assert.Equal(t, historySelect+
		" WHERE pagado_en >= $1 AND pagado_en < $2 AND mesa = $3 AND metodo_pago = $4"+
		" ORDER BY pagado_en DESC LIMIT $5", query)
	require.Len(t, args, 5)
	assert.Equal(t, from, args[0])
	assert.Equal(t, to, args[1])
	assert.Equal(t, 7, args[2])
	assert.Equal(t, "efectivo", args[3])
	assert.Equal(t, 20, args[4])
}

func TestBuildHistoryQuerySingleFilterNumbering(t *testing.T) {
	query, args := BuildHistoryQuery(domain.HistoryFilter{Method: domain.MethodDebit})

	assert.Equal(t, historySelect+" WHERE metodo_pago = $1 ORDER BY pagado_en DESC LIMIT $2", query)
	assert.Equal(t, []any{"debito", 50}, args)
}

func TestBuildHistoryQueryTableOnly(t *testing.T) {
	query, args := BuildHistoryQuery(domain.HistoryFilter{Table: 3, Limit: 5})

	assert.Equal(t, historySelect+" WHERE mesa = $1 ORDER BY pagado_en DESC LIMIT $2", query)
	assert.Equal(t, []any{3, 5}, args)
}

func TestBuildHistoryQueryLimitBounds(t *testing.T) {
	_, args := BuildHistoryQuery(domain.HistoryFilter{Limit: -10})
	assert.Equal(t, []any{50}, args)

	_, args = BuildHistoryQuery(domain.HistoryFilter{Limit: 9999})
	assert.Equal(t, []any{500}, args, "limit is capped")
}
