package domain

import "context"

// UpsertResult reports what the CRM did with a contact.
//
// Exactly one of Created/Updated/Skipped is set on success.
type UpsertResult struct {
	Created bool
	Updated bool
	Skipped bool
	Reason  string
	ID      string
}

// Upserter pushes a contact into the CRM, updating by email when the
// contact already exists and creating it otherwise.
type Upserter interface {
	Upsert(ctx context.Context, c Contact) (UpsertResult, error)
}
