package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"riskgate/internal/validation"

	"cloud.google.com/go/storage"
	"github.com/shopspring/decimal"
)

const gcsScheme = "gs://"

// CSVSource reads a headered CSV export of the transactions table from a
// local path or a gs://bucket/object URI.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Load(ctx context.Context) ([]Row, error) {
	rc, err := open(ctx, s.path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCSV(rc)
}

func open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, object, ok := SplitGCSPath(path)
	if !ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSource, err)
		}
		return f, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create storage client: %w", ErrSource, err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: open GCS object reader: %w", ErrSource, err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (g *gcsReader) Close() error {
	return errors.Join(g.Reader.Close(), g.client.Close())
}

// SplitGCSPath splits gs://bucket/object. ok is false for anything else.
func SplitGCSPath(path string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(path, gcsScheme)
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// ReadCSV parses rows keyed by header name. Column order is free; every name
// in Columns must be present. Empty amounts read as zero, empty device ids
// as absent.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrSource, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range Columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSource, name)
		}
	}

	var out []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseRecord(record []string, index map[string]int) (Row, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	var (
		r   Row
		tx  = &r.Transaction
		err error
	)
	if tx.TransactionID, err = strconv.ParseInt(field("transaction_id"), 10, 64); err != nil {
		return r, fmt.Errorf("transaction_id: %w", err)
	}
	if tx.MerchantID, err = strconv.ParseInt(field("merchant_id"), 10, 64); err != nil {
		return r, fmt.Errorf("merchant_id: %w", err)
	}
	if tx.UserID, err = strconv.ParseInt(field("user_id"), 10, 64); err != nil {
		return r, fmt.Errorf("user_id: %w", err)
	}
	tx.CardNumber = field("card_number")
	if tx.TransactionDate, err = validation.ParseTimestamp(field("transaction_date")); err != nil {
		return r, fmt.Errorf("transaction_date: %w", err)
	}

	tx.TransactionAmount = decimal.Zero
	if v := field("transaction_amount"); v != "" {
		if tx.TransactionAmount, err = decimal.NewFromString(v); err != nil {
			return r, fmt.Errorf("transaction_amount: %w", err)
		}
	}
	if v := field("device_id"); v != "" {
		id, err := parseDeviceID(v)
		if err != nil {
			return r, fmt.Errorf("device_id: %w", err)
		}
		tx.DeviceID = &id
	}
	if v := field("has_cbk"); v != "" {
		if r.HasChargeback, err = strconv.ParseBool(v); err != nil {
			return r, fmt.Errorf("has_cbk: %w", err)
		}
	}
	return r, nil
}

// parseDeviceID accepts "285475" and the float rendering "285475.0" that
// spreadsheet exports produce for nullable integer columns.
func parseDeviceID(v string) (int64, error) {
	if id, err := strconv.ParseInt(v, 10, 64); err == nil {
		return id, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	return d.IntPart(), nil
}

var _ Source = (*CSVSource)(nil)
