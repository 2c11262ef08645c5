package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresSource reads the transactions table over a plain database/sql pool.
type PostgresSource struct {
	db    *sql.DB
	table string
}

// OpenPostgres opens a lib/pq pool for dsn. The caller owns Close.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrSource, err)
	}
	return db, nil
}

// NewPostgresSource reads from table, or "transactions" when table is empty.
func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	if table == "" {
		table = "transactions"
	}
	return &PostgresSource{db: db, table: table}
}

func (s *PostgresSource) query() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY transaction_id",
		strings.Join(Columns, ", "), s.table)
}

func (s *PostgresSource) Load(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrSource, s.table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r      Row
			amount decimal.NullDecimal
			device sql.NullInt64
			cbk    sql.NullBool
			card   sql.NullString
		)
		err := rows.Scan(
			&r.Transaction.TransactionID,
			&r.Transaction.MerchantID,
			&r.Transaction.UserID,
			&card,
			&r.Transaction.TransactionDate,
			&amount,
			&device,
			&cbk,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrMalformedRow, err)
		}
		r.Transaction.CardNumber = card.String
		r.Transaction.TransactionAmount = decimal.Zero
		if amount.Valid {
			r.Transaction.TransactionAmount = amount.Decimal
		}
		if device.Valid {
			id := device.Int64
			r.Transaction.DeviceID = &id
		}
		r.HasChargeback = cbk.Valid && cbk.Bool
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %w", ErrSource, s.table, err)
	}
	return out, nil
}

var _ Source = (*PostgresSource)(nil)
