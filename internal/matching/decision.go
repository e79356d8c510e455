package matching

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow/internal/model"
)

// discoveryTimeout bounds the fire-and-forget contact lookup on approval.
const discoveryTimeout = 60 * time.Second

// Approve marks the match approved and selects the buyer for outreach, then
// kicks off contact discovery in the background. A passed match cannot be
// approved; pass the deal decision flow instead.
func (s *Session) Approve(ctx context.Context, buyerID, dealID string) error {
	m, err := s.transition(ctx, buyerID, dealID, model.MatchApproved, func(m *model.BuyerDealMatch) error {
		if m.Status == model.MatchPassed {
			return eris.Errorf("matching: match %s is passed, cannot approve", m.ID)
		}
		m.Status = model.MatchApproved
		m.SelectedForOutreach = true
		return nil
	})
	if err != nil {
		return err
	}

	if s.contacts != nil {
		go s.discoverContacts(buyerID, m.ID)
	}
	return nil
}

// Pass records a pass decision. Category and reason are required; notes are
// optional. Pass is allowed from any scored state, including approved, and
// is terminal for outreach.
func (s *Session) Pass(ctx context.Context, buyerID, dealID, category, reason, notes string) error {
	if strings.TrimSpace(category) == "" {
		return eris.New("matching: pass requires a category")
	}
	if strings.TrimSpace(reason) == "" {
		return eris.New("matching: pass requires a reason")
	}

	_, err := s.transition(ctx, buyerID, dealID, model.MatchPassed, func(m *model.BuyerDealMatch) error {
		m.Status = model.MatchPassed
		m.PassedOnDeal = true
		m.SelectedForOutreach = false
		m.PassCategory = category
		m.PassReason = reason
		m.PassNotes = notes
		return nil
	})
	return err
}

// SetInterested records the buyer's interest response. Rejected on passed
// matches.
func (s *Session) SetInterested(ctx context.Context, buyerID, dealID string, interested bool) error {
	status := model.MatchInterested
	if !interested {
		status = model.MatchNotInterested
	}
	_, err := s.transition(ctx, buyerID, dealID, status, func(m *model.BuyerDealMatch) error {
		if m.Status == model.MatchPassed {
			return eris.Errorf("matching: match %s is passed, cannot record interest", m.ID)
		}
		m.Status = status
		m.Interested = &interested
		return nil
	})
	return err
}

// transition loads the match under its lock, validates it is scored, applies
// mutate, and persists. Decision writes never touch score fields.
func (s *Session) transition(ctx context.Context, buyerID, dealID string, to model.MatchStatus, mutate func(*model.BuyerDealMatch) error) (*model.BuyerDealMatch, error) {
	unlock := s.locks.lock(matchKey(buyerID, dealID))
	defer unlock()

	m, err := s.store.GetMatch(ctx, buyerID, dealID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, eris.Errorf("matching: no match for buyer %s and deal %s", buyerID, dealID)
	}
	if m.Status == model.MatchUnscored {
		return nil, eris.Errorf("matching: match %s is unscored, score the deal first", m.ID)
	}

	from := m.Status
	if err := mutate(m); err != nil {
		return nil, err
	}
	if err := s.store.UpsertMatch(ctx, m); err != nil {
		return nil, err
	}

	zap.L().Info("matching: decision recorded",
		zap.String("match_id", m.ID),
		zap.String("buyer_id", buyerID),
		zap.String("deal_id", dealID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return m, nil
}

// discoverContacts runs contact discovery for an approved buyer and stores
// the results. Failures are logged only.
func (s *Session) discoverContacts(buyerID, matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()

	buyer, err := s.store.GetBuyer(ctx, buyerID)
	if err != nil || buyer == nil {
		zap.L().Warn("matching: contact discovery load failed",
			zap.String("buyer_id", buyerID), zap.Error(err))
		return
	}

	contacts, err := s.contacts.Discover(ctx, buyer)
	if err != nil {
		zap.L().Warn("matching: contact discovery failed",
			zap.String("buyer_id", buyerID),
			zap.String("match_id", matchID),
			zap.Error(err))
		return
	}
	if len(contacts) == 0 {
		return
	}
	for i := range contacts {
		contacts[i].BuyerID = buyerID
	}
	if err := s.store.CreateContacts(ctx, contacts); err != nil {
		zap.L().Warn("matching: save discovered contacts failed",
			zap.String("buyer_id", buyerID), zap.Error(err))
		return
	}
	zap.L().Info("matching: contacts discovered",
		zap.String("buyer_id", buyerID),
		zap.Int("count", len(contacts)))
}
