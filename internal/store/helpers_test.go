package store

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var productCols = []string{
	"id", "name", "description", "price", "image_url", "category",
	"stock", "is_digital", "featured", "created_at", "updated_at",
}

var cartLineCols = append([]string{
	"ci.id", "ci.user_id", "ci.product_id", "ci.quantity", "ci.created_at",
}, productCols...)

var orderCols = []string{
	"id", "user_id", "status", "total_amount", "shipping_address", "payment_reference", "created_at", "updated_at",
}

var orderItemCols = append([]string{
	"oi.id", "oi.order_id", "oi.product_id", "oi.quantity", "oi.price", "oi.created_at",
}, productCols...)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type testProduct struct {
	id      string
	price   string
	stock   int
	digital bool
}

func productValues(p testProduct) []driver.Value {
	return []driver.Value{
		p.id, "Product " + p.id, "", p.price, "", "general",
		int64(p.stock), p.digital, false, testTime, testTime,
	}
}

func cartLineRow(rows *sqlmock.Rows, lineID string, qty int, p testProduct) *sqlmock.Rows {
	values := append([]driver.Value{lineID, "user-1", p.id, int64(qty), testTime}, productValues(p)...)
	return rows.AddRow(values...)
}

// decimalArg matches a decimal bound parameter by value.
type decimalArg string

func (d decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(string(d)))
}
