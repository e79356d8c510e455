// Package store persists buyer and deal profiles, buyer-deal matches, and
// bulk-operation checkpoints. Two backends exist: Postgres for production
// and SQLite for local work. Absent records read back as nil, not errors;
// persistence failures propagate since no safe default exists for them.
package store

import (
	"context"

	"github.com/sells-group/dealflow/internal/model"
)

// Store is the persistence interface for the deal-flow matching core.
type Store interface {
	// Buyers
	CreateBuyer(ctx context.Context, b *model.BuyerProfile) error
	GetBuyer(ctx context.Context, id string) (*model.BuyerProfile, error)
	ListBuyers(ctx context.Context) ([]model.BuyerProfile, error)
	UpdateBuyer(ctx context.Context, b *model.BuyerProfile) error
	DeleteBuyer(ctx context.Context, id string) error

	// MergeBuyers atomically persists a dedup merge: the survivor row is
	// updated, contacts and transcripts are repointed, (buyer, deal) match
	// collisions collapse keeping the higher composite score, and the
	// removed buyers are deleted. Either the whole group commits or
	// nothing changes.
	MergeBuyers(ctx context.Context, survivor *model.BuyerProfile, removedIDs []string) error

	// Deals
	CreateDeal(ctx context.Context, d *model.DealProfile) error
	GetDeal(ctx context.Context, id string) (*model.DealProfile, error)
	UpdateDeal(ctx context.Context, d *model.DealProfile) error

	// Matches
	GetMatch(ctx context.Context, buyerID, dealID string) (*model.BuyerDealMatch, error)
	ListMatchesByDeal(ctx context.Context, dealID string) ([]model.BuyerDealMatch, error)
	UpsertMatch(ctx context.Context, m *model.BuyerDealMatch) error

	// Contacts
	CreateContacts(ctx context.Context, contacts []model.Contact) error
	ListContactsByBuyer(ctx context.Context, buyerID string) ([]model.Contact, error)

	// Transcripts
	CreateTranscript(ctx context.Context, t *model.Transcript) error
	ListTranscriptsByBuyer(ctx context.Context, buyerID string) ([]model.Transcript, error)

	// Checkpoints
	GetCheckpoint(ctx context.Context, operationID, collectionID string) (*model.EnrichmentCheckpoint, error)
	SaveCheckpoint(ctx context.Context, cp *model.EnrichmentCheckpoint) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
