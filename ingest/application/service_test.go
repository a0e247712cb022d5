package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync-bridge/ingest/domain"
)

type memStore struct {
	events  []domain.Event
	failLog bool
}

func (s *memStore) AlreadyProcessed(_ context.Context, spreadsheetID, sheetName string, rowIndex int, rowHash string) (bool, error) {
	for _, ev := range s.events {
		if ev.SpreadsheetID == spreadsheetID && ev.SheetName == sheetName &&
			ev.RowIndex == rowIndex && ev.RowHash == rowHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Log(_ context.Context, ev domain.Event) error {
	if s.failLog {
		return errors.New("log write failed")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	return s.events, nil
}

type fakeUpserter struct {
	result domain.UpsertResult
	err    error
	calls  int
}

func (u *fakeUpserter) Upsert(_ context.Context, c domain.Contact) (domain.UpsertResult, error) {
	u.calls++
	return u.result, u.err
}

func row() domain.Row {
	return domain.Row{
		SpreadsheetID: "sheet-1",
		SheetName:     "Contacts",
		RowIndex:      4,
		Headers:       []string{"email", "first name"},
		Values:        []string{"ada@example.com", "Ada"},
	}
}

func TestProcess_CreatesAndLogs(t *testing.T) {
	store := &memStore{}
	up := &fakeUpserter{result: domain.UpsertResult{Created: true, ID: "42"}}
	svc := Service{Store: store, Upserter: up}

	res, err := svc.Process(context.Background(), row())
	require.NoError(t, err)

	assert.True(t, res.Upsert.Created)
	assert.Equal(t, "42", res.Upsert.ID)
	require.Len(t, store.events, 1)
	assert.Equal(t, domain.OutcomeCreated, store.events[0].Action)
	assert.Equal(t, "42", store.events[0].HubSpotID)
	assert.Equal(t, row().Hash(), store.events[0].RowHash)
}

func TestProcess_SecondSendIsDuplicate(t *testing.T) {
	store := &memStore{}
	up := &fakeUpserter{result: domain.UpsertResult{Created: true, ID: "42"}}
	svc := Service{Store: store, Upserter: up}

	_, err := svc.Process(context.Background(), row())
	require.NoError(t, err)

	res, err := svc.Process(context.Background(), row())
	require.NoError(t, err)

	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, up.calls, "duplicate must not reach the CRM")
	require.Len(t, store.events, 2)
	assert.Equal(t, domain.OutcomeDuplicate, store.events[1].Action)
}

func TestProcess_ChangedContentIsNotDuplicate(t *testing.T) {
	store := &memStore{}
	up := &fakeUpserter{result: domain.UpsertResult{Updated: true, ID: "42"}}
	svc := Service{Store: store, Upserter: up}

	_, err := svc.Process(context.Background(), row())
	require.NoError(t, err)

	changed := row()
	changed.Values = []string{"ada@example.com", "Ada L."}
	res, err := svc.Process(context.Background(), changed)
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.True(t, res.Upsert.Updated)
	assert.Equal(t, 2, up.calls)
}

func TestProcess_MissingEmailSkips(t *testing.T) {
	store := &memStore{}
	up := &fakeUpserter{}
	svc := Service{Store: store, Upserter: up}

	r := row()
	r.Values = []string{"", "Ada"}

	res, err := svc.Process(context.Background(), r)
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Equal(t, "missing email", res.Reason)
	assert.Zero(t, up.calls)
	require.Len(t, store.events, 1)
	assert.Equal(t, domain.OutcomeSkipped, store.events[0].Action)
	assert.Equal(t, "missing email", store.events[0].Detail)
}

func TestProcess_UpsertErrorIsLoggedAndReturned(t *testing.T) {
	store := &memStore{}
	upErr := errors.New("hubspot said no")
	up := &fakeUpserter{err: upErr}
	svc := Service{Store: store, Upserter: up}

	_, err := svc.Process(context.Background(), row())
	require.ErrorIs(t, err, upErr)

	require.Len(t, store.events, 1)
	assert.Equal(t, domain.OutcomeError, store.events[0].Action)
	assert.Contains(t, store.events[0].Detail, "hubspot said no")
}

// A failing audit write on the error path must not replace the upsert
// error the caller sees.
func TestProcess_LogFailureDoesNotMaskUpsertError(t *testing.T) {
	store := &memStore{failLog: true}
	upErr := errors.New("hubspot said no")
	svc := Service{Store: store, Upserter: &fakeUpserter{err: upErr}}

	_, err := svc.Process(context.Background(), row())
	require.ErrorIs(t, err, upErr)
}

func TestProcess_TruncatesLongDetail(t *testing.T) {
	store := &memStore{}
	up := &fakeUpserter{err: errors.New(strings.Repeat("x", 5000))}
	svc := Service{Store: store, Upserter: up}

	_, err := svc.Process(context.Background(), row())
	require.Error(t, err)

	require.Len(t, store.events, 1)
	assert.LessOrEqual(t, len(store.events[0].Detail), 2000)
}

func TestProcess_RecordsStats(t *testing.T) {
	store := &memStore{}
	stats := &captureStats{}
	svc := Service{
		Store:    store,
		Upserter: &fakeUpserter{result: domain.UpsertResult{Created: true, ID: "1"}},
		Stats:    stats,
	}

	_, err := svc.Process(context.Background(), row())
	require.NoError(t, err)

	require.Len(t, stats.events, 1)
	assert.Equal(t, domain.OutcomeCreated, stats.events[0].Outcome)
	assert.Equal(t, "sheet-1", stats.events[0].SpreadsheetID)
}

// Stats are best-effort: a failing store must not fail the row.
func TestProcess_StatsFailureIsIgnored(t *testing.T) {
	store := &memStore{}
	svc := Service{
		Store:    store,
		Upserter: &fakeUpserter{result: domain.UpsertResult{Created: true, ID: "1"}},
		Stats:    &captureStats{err: errors.New("redis down")},
	}

	res, err := svc.Process(context.Background(), row())
	require.NoError(t, err)
	assert.True(t, res.Upsert.Created)
}

type captureStats struct {
	events []domain.SyncEvent
	err    error
}

func (s *captureStats) Record(_ context.Context, ev domain.SyncEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}
