package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"sheetsync-bridge/ingest/domain"
)

// maxDetailLen bounds the free-text detail column in the audit log.
const maxDetailLen = 2000

// Service concentrates the ingest rules for a single row.
//
// It does not know about HTTP (headers/status); the adapter translates its
// Result and errors into responses.
type Service struct {
	Store    domain.EventStore
	Upserter domain.Upserter
	Stats    domain.SyncStats // optional, best-effort
}

// Result is the decision Process reached for one row.
type Result struct {
	Duplicate bool
	Skipped   bool
	Reason    string
	Upsert    domain.UpsertResult
}

// Process runs one row through dedupe, mapping and CRM upsert.
//
// The same (spreadsheet, sheet, row index, content hash) tuple is processed
// at most once; a content change re-qualifies the row. Rows without an
// email never reach the CRM.
func (s Service) Process(ctx context.Context, row domain.Row) (Result, error) {
	hash := row.Hash()

	seen, err := s.Store.AlreadyProcessed(ctx, row.SpreadsheetID, row.SheetName, row.RowIndex, hash)
	if err != nil {
		return Result{}, fmt.Errorf("dedupe check: %w", err)
	}
	if seen {
		if err := s.log(ctx, row, hash, domain.OutcomeDuplicate, "", ""); err != nil {
			return Result{}, err
		}
		s.record(ctx, row, domain.OutcomeDuplicate)
		return Result{Duplicate: true}, nil
	}

	contact := domain.MapRow(row.Headers, row.Values, row.Mapping)
	if contact.Email == "" {
		if err := s.log(ctx, row, hash, domain.OutcomeSkipped, "", "missing email"); err != nil {
			return Result{}, err
		}
		s.record(ctx, row, domain.OutcomeSkipped)
		return Result{Skipped: true, Reason: "missing email"}, nil
	}

	res, err := s.Upserter.Upsert(ctx, contact)
	if err != nil {
		// Best effort: the original upsert error must not be masked by a
		// failing log write.
		if logErr := s.log(ctx, row, hash, domain.OutcomeError, "", err.Error()); logErr != nil {
			log.Printf("ingest: logging upsert error failed: %v", logErr)
		}
		s.record(ctx, row, domain.OutcomeError)
		return Result{}, err
	}

	outcome := domain.OutcomeUpdated
	if res.Created {
		outcome = domain.OutcomeCreated
	}
	if err := s.log(ctx, row, hash, outcome, res.ID, fmt.Sprintf("%v", contact.Props())); err != nil {
		return Result{}, err
	}
	s.record(ctx, row, outcome)

	return Result{Upsert: res}, nil
}

func (s Service) log(ctx context.Context, row domain.Row, hash string, action domain.Outcome, hubspotID, detail string) error {
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}
	return s.Store.Log(ctx, domain.Event{
		SpreadsheetID: row.SpreadsheetID,
		SheetName:     row.SheetName,
		RowIndex:      row.RowIndex,
		RowHash:       hash,
		HubSpotID:     hubspotID,
		Action:        action,
		Detail:        detail,
		At:            time.Now().UTC(),
	})
}

func (s Service) record(ctx context.Context, row domain.Row, outcome domain.Outcome) {
	if s.Stats == nil {
		return
	}
	ev := domain.SyncEvent{
		SpreadsheetID: row.SpreadsheetID,
		SheetName:     row.SheetName,
		Outcome:       outcome,
		At:            time.Now(),
	}
	if err := s.Stats.Record(ctx, ev); err != nil {
		log.Printf("ingest: stats record failed: %v", err)
	}
}
