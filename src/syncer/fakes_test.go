package syncer

import (
	"budget-server/src/airtable"
	"budget-server/src/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSource struct {
	mu        sync.Mutex
	records   map[models.RecordType][]airtable.Record
	listErr   map[models.RecordType]error
	deleteErr error // returned for every batch after the first
	listCalls int
	deleted   [][]string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: map[models.RecordType][]airtable.Record{},
		listErr: map[models.RecordType]error{},
	}
}

func (f *fakeSource) ListRecords(_ context.Context, typ models.RecordType) ([]airtable.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if err := f.listErr[typ]; err != nil {
		return nil, err
	}
	return append([]airtable.Record(nil), f.records[typ]...), nil
}

func (f *fakeSource) DeleteRecords(_ context.Context, _ models.RecordType, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil && len(f.deleted) > 0 {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, append([]string(nil), ids...))
	return nil
}

func (f *fakeSource) deletedIDs() []string {
	var ids []string
	for _, batch := range f.deleted {
		ids = append(ids, batch...)
	}
	return ids
}

type fakeStore struct {
	mu           sync.Mutex
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	runs         []models.SyncRun
	demo         map[int64]bool
	demoErr      error
	failOn       map[string]error
	abortOn      map[string]bool
	beginErr     error
	commitErr    error
	rollbacks    int
	writes       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     map[string]models.Account{},
		transactions: map[string]models.Transaction{},
		demo:         map[int64]bool{},
		failOn:       map[string]error{},
		abortOn:      map[string]bool{},
	}
}

func (s *fakeStore) BeginLeg(_ context.Context, typ models.RecordType) (Leg, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeLeg{store: s, typ: typ}, nil
}

func (s *fakeStore) OpenSyncRun(_ context.Context, typ models.RecordType, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, models.SyncRun{ID: int64(len(s.runs) + 1), SyncType: typ, StartedAt: startedAt, Status: models.SyncRunRunning})
	return int64(len(s.runs)), nil
}

func (s *fakeStore) CloseSyncRun(_ context.Context, id int64, status models.SyncRunStatus, synced int64, errMsg *string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &s.runs[id-1]
	if run.Status != models.SyncRunRunning {
		return fmt.Errorf("sync run %d closed twice", id)
	}
	run.Status = status
	run.RecordsSynced = synced
	run.ErrorMessage = errMsg
	run.CompletedAt = &completedAt
	return nil
}

func (s *fakeStore) IsDemoUser(_ context.Context, userID int64) (bool, error) {
	if s.demoErr != nil {
		return false, s.demoErr
	}
	return s.demo[userID], nil
}

func (s *fakeStore) run(typ models.RecordType) models.SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].SyncType == typ {
			return s.runs[i]
		}
	}
	return models.SyncRun{}
}

// fakeLeg stages writes and applies them on commit.
type fakeLeg struct {
	store        *fakeStore
	typ          models.RecordType
	accounts     []models.Account
	transactions []models.Transaction
}

func (l *fakeLeg) check(id string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.writes = append(l.store.writes, id)
	if l.store.abortOn[id] {
		return ErrBatchAborted
	}
	return l.store.failOn[id]
}

func (l *fakeLeg) UpsertAccount(_ context.Context, acc *models.Account) (int64, error) {
	if err := l.check(acc.AirtableID); err != nil {
		return 0, err
	}
	l.accounts = append(l.accounts, *acc)
	return 1, nil
}

func (l *fakeLeg) UpsertTransaction(_ context.Context, txn *models.Transaction) (int64, error) {
	if err := l.check(txn.AirtableID); err != nil {
		return 0, err
	}
	l.transactions = append(l.transactions, *txn)
	return 1, nil
}

func (l *fakeLeg) Commit(context.Context) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if l.store.commitErr != nil {
		return l.store.commitErr
	}
	for _, a := range l.accounts {
		l.store.accounts[a.AirtableID] = a
	}
	for _, t := range l.transactions {
		l.store.transactions[t.AirtableID] = t
	}
	return nil
}

func (l *fakeLeg) Rollback(context.Context) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.rollbacks++
	return nil
}

func accountRecord(id, plaidID string, usd float64) airtable.Record {
	return airtable.Record{ID: id, Fields: map[string]any{
		"**Institution":            "Chase",
		"**USD":                    usd,
		"**Last Successful Update": "2024-05-30T08:00:00.000Z",
		"Plaid Account ID":         plaidID,
	}}
}

func transactionRecord(id, date, accountID string) airtable.Record {
	return airtable.Record{ID: id, Fields: map[string]any{
		"*Name":      "Coffee",
		"**Date":     date,
		"**USD":      -4.5,
		"*Vendor":    "Blue Bottle",
		"Account ID": []any{accountID},
	}}
}

var errConnRefused = errors.New("connection refused")
