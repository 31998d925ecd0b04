package airtable

import (
	"budget-server/src/models"
	"context"
	"fmt"

	"github.com/mehanizm/airtable"
)

// MaxBatchDelete is the per-request delete limit of the Airtable API.
const MaxBatchDelete = 10

// Field names after markers are stripped.
const (
	FieldInstitution          = "Institution"
	FieldUSD                  = "USD"
	FieldLastSuccessfulUpdate = "Last Successful Update"
	FieldPlaidAccountID       = "Plaid Account ID"

	FieldName      = "Name"
	FieldDate      = "Date"
	FieldVendor    = "Vendor"
	FieldNotes     = "Notes"
	FieldAccountID = "Account ID"
)

// Requested fields, decorated the way they are named in the base.
var (
	AccountFields     = []string{"**Institution", "**USD", "**Last Successful Update", "Plaid Account ID"}
	TransactionFields = []string{"*Name", "**Date", "**USD", "*Vendor", "*Notes", "Account ID"}
)

// Record is one external record: its id and raw (possibly decorated) fields.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

// Source reads and prunes the accounts and transactions tables of one base.
type Source struct {
	client *airtable.Client
	baseID string
	tables map[models.RecordType]string
}

func NewSource(accessToken, baseID, accountsTable, transactionsTable string) *Source {
	return &Source{
		client: airtable.NewClient(accessToken),
		baseID: baseID,
		tables: map[models.RecordType]string{
			models.RecordTypeAccounts:     accountsTable,
			models.RecordTypeTransactions: transactionsTable,
		},
	}
}

func fieldsFor(typ models.RecordType) ([]string, error) {
	switch typ {
	case models.RecordTypeAccounts:
		return AccountFields, nil
	case models.RecordTypeTransactions:
		return TransactionFields, nil
	}
	return nil, fmt.Errorf("invalid record type: %q", typ)
}

func (s *Source) table(typ models.RecordType) (*airtable.Table, error) {
	name, ok := s.tables[typ]
	if !ok || name == "" {
		return nil, fmt.Errorf("no table configured for %q", typ)
	}
	return s.client.GetTable(s.baseID, name), nil
}

// ListRecords returns every record of typ, following pagination offsets.
func (s *Source) ListRecords(ctx context.Context, typ models.RecordType) ([]Record, error) {
	fields, err := fieldsFor(typ)
	if err != nil {
		return nil, err
	}
	table, err := s.table(typ)
	if err != nil {
		return nil, err
	}

	var records []Record
	offset := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := table.GetRecords().ReturnFields(fields...)
		if offset != "" {
			query = query.WithOffset(offset)
		}
		page, err := query.Do()
		if err != nil {
			return nil, fmt.Errorf("error making Airtable request for %s: %w", typ, err)
		}

		for _, r := range page.Records {
			records = append(records, Record{ID: r.ID, CreatedTime: r.CreatedTime, Fields: r.Fields})
		}
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// DeleteRecords deletes ids from the table of typ. Callers batch; more than
// MaxBatchDelete ids is rejected before any request is made.
func (s *Source) DeleteRecords(ctx context.Context, typ models.RecordType, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchDelete {
		return fmt.Errorf("batch of %d exceeds the %d record delete limit", len(ids), MaxBatchDelete)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	table, err := s.table(typ)
	if err != nil {
		return err
	}
	if _, err := table.DeleteRecords(ids); err != nil {
		return fmt.Errorf("failed to delete %d %s records: %w", len(ids), typ, err)
	}
	return nil
}
