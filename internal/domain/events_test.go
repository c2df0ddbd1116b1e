package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTableTotals(t *testing.T) {
	body := []byte(`{"tables":[{"table_id":2,"total":4500,"status":"abierta"},{"table_id":5,"total":0}]}`)

	ev, err := DecodeTableTotals(body)
	require.NoError(t, err)
	require.Len(t, ev.Tables, 2)
	assert.Equal(t, 2, ev.Tables[0].TableID)
	assert.Equal(t, int64(4500), ev.Tables[0].Total)
	assert.Equal(t, TableOccupied, ev.Tables[0].Status)
	assert.Empty(t, ev.Tables[1].Status, "status is optional per table")
}

func TestDecodeTableTotalsEmptySnapshot(t *testing.T) {
	ev, err := DecodeTableTotals([]byte(`{"tables":[]}`))
	require.NoError(t, err)
	assert.Empty(t, ev.Tables)
}

func TestDecodeTableTotalsRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"not json":       `}{`,
		"zero table id":  `{"tables":[{"table_id":0,"total":100}]}`,
		"negative id":    `{"tables":[{"table_id":-1,"total":100}]}`,
		"negative total": `{"tables":[{"table_id":1,"total":-50}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTableTotals([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeNewOrder(t *testing.T) {
	body := []byte(`{"order_id":42,"table_number":7,"items":[
		{"name":"ceviche","quantity":1,"unit_price":5000,"subtotal":5000},
		{"name":"chicha","quantity":2,"unit_price":1500,"subtotal":3000,"customer_label":"cliente 2"}
	]}`)

	ev, err := DecodeNewOrder(body)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.OrderID)
	assert.Equal(t, 7, ev.TableNumber)
	require.Len(t, ev.Items, 2)
	assert.Equal(t, "cliente 2", ev.Items[1].CustomerLabel)
	assert.Equal(t, int64(8000), ev.RawTotal())
}

func TestDecodeNewOrderRejectsBadEvents(t *testing.T) {
	cases := map[string]string{
		"missing id": `{"table_number":7,"items":[{"name":"x","quantity":1,"unit_price":1,"subtotal":1}]}`,
		"bad table":  `{"order_id":1,"table_number":0,"items":[{"name":"x","quantity":1,"unit_price":1,"subtotal":1}]}`,
		"no items":   `{"order_id":1,"table_number":7,"items":[]}`,
		"zero qty":   `{"order_id":1,"table_number":7,"items":[{"name":"x","quantity":0,"unit_price":1,"subtotal":0}]}`,
		"neg price":  `{"order_id":1,"table_number":7,"items":[{"name":"x","quantity":1,"unit_price":-1,"subtotal":-1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeNewOrder([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeNewOrderSentinels(t *testing.T) {
	_, err := DecodeNewOrder([]byte(`{"table_number":7,"items":[{"name":"x","quantity":1,"unit_price":1,"subtotal":1}]}`))
	assert.ErrorIs(t, err, ErrMissingOrderID)

	_, err = DecodeNewOrder([]byte(`{"order_id":1,"table_number":-2,"items":[{"name":"x","quantity":1,"unit_price":1,"subtotal":1}]}`))
	assert.ErrorIs(t, err, ErrBadTableNumber)
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, MethodDebit.Valid())
	assert.True(t, MethodCredit.Valid())
	assert.True(t, MethodCash.Valid())
	assert.False(t, PaymentMethod("cheque").Valid())
	assert.False(t, PaymentMethod("").Valid())
}

func TestOrderRawTotal(t *testing.T) {
	o := Order{Items: []LineItem{{Subtotal: 5000}, {Subtotal: 3000}, {Subtotal: 450}}}
	assert.Equal(t, int64(8450), o.RawTotal())
	assert.Equal(t, int64(0), Order{}.RawTotal())
}
