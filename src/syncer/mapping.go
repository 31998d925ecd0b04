package syncer

import (
	"budget-server/src/airtable"
	"budget-server/src/logger"
	"budget-server/src/models"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// accountFromRecord maps a cleaned accounts record. An unparseable
// Last Successful Update is stored as NULL and logged, not rejected.
func accountFromRecord(ctx context.Context, rec airtable.Record, userID int64) (*models.Account, error) {
	usd, err := parseUSD(rec.Fields[airtable.FieldUSD])
	if err != nil {
		return nil, &RecordError{RecordID: rec.ID, Op: "parse", Err: err}
	}

	acc := &models.Account{
		AirtableID:     rec.ID,
		Institution:    optString(rec.Fields[airtable.FieldInstitution]),
		USD:            usd,
		PlaidAccountID: optString(rec.Fields[airtable.FieldPlaidAccountID]),
		UserID:         userID,
	}

	if raw := optString(rec.Fields[airtable.FieldLastSuccessfulUpdate]); raw != nil {
		t, err := time.Parse(time.RFC3339Nano, *raw)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Str("record_id", rec.ID).Str("value", *raw).Msg("Storing account without last update time")
		} else {
			t = t.UTC()
			acc.LastSuccessfulUpdate = &t
		}
	}
	return acc, nil
}

func transactionFromRecord(rec airtable.Record) (*models.Transaction, error) {
	usd, err := parseUSD(rec.Fields[airtable.FieldUSD])
	if err != nil {
		return nil, &RecordError{RecordID: rec.ID, Op: "parse", Err: err}
	}

	txn := &models.Transaction{
		AirtableID: rec.ID,
		Name:       optString(rec.Fields[airtable.FieldName]),
		USD:        usd,
		Vendor:     optString(rec.Fields[airtable.FieldVendor]),
		Notes:      optString(rec.Fields[airtable.FieldNotes]),
		AccountID:  firstString(rec.Fields[airtable.FieldAccountID]),
	}

	if raw := optString(rec.Fields[airtable.FieldDate]); raw != nil {
		d, ok := parseDate(*raw)
		if !ok {
			return nil, &RecordError{RecordID: rec.ID, Op: "parse", Err: fmt.Errorf("unparseable %s %q", airtable.FieldDate, *raw)}
		}
		txn.Date = &d
	}
	return txn, nil
}

// parseInstant accepts an RFC 3339 instant or a plain calendar date, read as
// midnight UTC.
func parseInstant(s string) (time.Time, bool) {
	layout := dateLayout
	if strings.Contains(s, "T") {
		layout = time.RFC3339Nano
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// parseDate is parseInstant truncated to its UTC calendar day.
func parseDate(s string) (time.Time, bool) {
	t, ok := parseInstant(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

func parseUSD(v any) (decimal.NullDecimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(n).Round(2)), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(n))), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(n)), nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("invalid USD %q: %w", n, err)
		}
		return decimal.NewNullDecimal(d.Round(2)), nil
	case string:
		s := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(n))
		if s == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("invalid USD %q: %w", n, err)
		}
		return decimal.NewNullDecimal(d.Round(2)), nil
	}
	return decimal.NullDecimal{}, fmt.Errorf("invalid USD value of type %T", v)
}

func optString(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case nil:
		return nil
	}
	str := fmt.Sprint(v)
	return &str
}

// firstString reads a plain string, or the first string of a linked-record
// or lookup array.
func firstString(v any) *string {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				return &s
			}
		}
		return nil
	}
	return optString(v)
}
