package matching

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/dealflow/internal/model"
	"github.com/sells-group/dealflow/internal/score"
)

// mockStore implements store.Store for session tests.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBuyer(ctx context.Context, b *model.BuyerProfile) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) GetBuyer(ctx context.Context, id string) (*model.BuyerProfile, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*model.BuyerProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListBuyers(ctx context.Context) ([]model.BuyerProfile, error) {
	args := m.Called(ctx)
	if b := args.Get(0); b != nil {
		return b.([]model.BuyerProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateBuyer(ctx context.Context, b *model.BuyerProfile) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) DeleteBuyer(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) MergeBuyers(ctx context.Context, survivor *model.BuyerProfile, removedIDs []string) error {
	return m.Called(ctx, survivor, removedIDs).Error(0)
}

func (m *mockStore) CreateDeal(ctx context.Context, d *model.DealProfile) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockStore) GetDeal(ctx context.Context, id string) (*model.DealProfile, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*model.DealProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateDeal(ctx context.Context, d *model.DealProfile) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockStore) GetMatch(ctx context.Context, buyerID, dealID string) (*model.BuyerDealMatch, error) {
	args := m.Called(ctx, buyerID, dealID)
	if mt := args.Get(0); mt != nil {
		return mt.(*model.BuyerDealMatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListMatchesByDeal(ctx context.Context, dealID string) ([]model.BuyerDealMatch, error) {
	args := m.Called(ctx, dealID)
	if mt := args.Get(0); mt != nil {
		return mt.([]model.BuyerDealMatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpsertMatch(ctx context.Context, mt *model.BuyerDealMatch) error {
	return m.Called(ctx, mt).Error(0)
}

func (m *mockStore) CreateContacts(ctx context.Context, contacts []model.Contact) error {
	return m.Called(ctx, contacts).Error(0)
}

func (m *mockStore) ListContactsByBuyer(ctx context.Context, buyerID string) ([]model.Contact, error) {
	args := m.Called(ctx, buyerID)
	if c := args.Get(0); c != nil {
		return c.([]model.Contact), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CreateTranscript(ctx context.Context, t *model.Transcript) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) ListTranscriptsByBuyer(ctx context.Context, buyerID string) ([]model.Transcript, error) {
	args := m.Called(ctx, buyerID)
	if t := args.Get(0); t != nil {
		return t.([]model.Transcript), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetCheckpoint(ctx context.Context, operationID, collectionID string) (*model.EnrichmentCheckpoint, error) {
	args := m.Called(ctx, operationID, collectionID)
	if cp := args.Get(0); cp != nil {
		return cp.(*model.EnrichmentCheckpoint), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) SaveCheckpoint(ctx context.Context, cp *model.EnrichmentCheckpoint) error {
	return m.Called(ctx, cp).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// mockScorer implements oracle.ScoringOracle.
type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, buyer *model.BuyerProfile, deal *model.DealProfile) (*score.Dimensions, error) {
	args := m.Called(ctx, buyer, deal)
	if d := args.Get(0); d != nil {
		return d.(*score.Dimensions), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockDiscovery implements oracle.ContactDiscovery.
type mockDiscovery struct {
	mock.Mock
}

func (m *mockDiscovery) Discover(ctx context.Context, buyer *model.BuyerProfile) ([]model.Contact, error) {
	args := m.Called(ctx, buyer)
	if c := args.Get(0); c != nil {
		return c.([]model.Contact), args.Error(1)
	}
	return nil, args.Error(1)
}
