// Package matching orchestrates scoring sessions and decision writes for a
// deal's buyer list. A session loads the buyer set, collects dimension scores
// from the scoring oracle with bounded parallelism, aggregates them, merges
// the result onto any stored match without touching decision fields, and
// returns the ranked list. All writes to a given record are serialized
// through a keyed mutex shared with the enrichment path.
package matching

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealflow/internal/merge"
	"github.com/sells-group/dealflow/internal/model"
	"github.com/sells-group/dealflow/internal/oracle"
	"github.com/sells-group/dealflow/internal/score"
	"github.com/sells-group/dealflow/internal/store"
)

const (
	defaultParallelism  = 4
	defaultScoreTimeout = 30 * time.Second
)

// Config tunes a Session.
type Config struct {
	// Parallelism bounds concurrent scoring-oracle calls. Zero means 4.
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism"`
	// ScoreTimeout bounds each oracle call. A timed-out buyer scores with
	// neutral defaults instead of failing the session. Zero means 30s.
	ScoreTimeout time.Duration `yaml:"score_timeout" mapstructure:"score_timeout"`
}

// Session runs scoring and decision operations for deals.
type Session struct {
	store    store.Store
	scorer   oracle.ScoringOracle
	contacts oracle.ContactDiscovery
	locks    *recordLocks

	parallelism  int
	scoreTimeout time.Duration
}

// NewSession creates a Session. contacts may be nil, in which case Approve
// skips contact discovery.
func NewSession(st store.Store, scorer oracle.ScoringOracle, contacts oracle.ContactDiscovery, cfg Config) *Session {
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	timeout := cfg.ScoreTimeout
	if timeout <= 0 {
		timeout = defaultScoreTimeout
	}
	return &Session{
		store:        st,
		scorer:       scorer,
		contacts:     contacts,
		locks:        newRecordLocks(),
		parallelism:  parallelism,
		scoreTimeout: timeout,
	}
}

// ScoreDeal scores every buyer against the deal and returns the ranked list.
// Oracle failures and timeouts degrade the affected buyer to neutral
// dimension defaults; persistence failures abort the session.
func (s *Session) ScoreDeal(ctx context.Context, dealID string) ([]score.RankedMatch, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, eris.Errorf("matching: deal not found: %s", dealID)
	}

	buyers, err := s.store.ListBuyers(ctx)
	if err != nil {
		return nil, err
	}
	if len(buyers) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	scored := make([]*model.BuyerDealMatch, len(buyers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range buyers {
		g.Go(func() error {
			b := &buyers[i]
			dims := s.scoreBuyer(gctx, b, deal)
			scored[i] = score.Aggregate(b.ID, deal.ID, *dims, deal.Weights, now)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "matching: score deal %s", dealID)
	}

	ranked := make([]score.RankedMatch, 0, len(buyers))
	for i := range buyers {
		b := &buyers[i]
		m, err := s.applyScores(ctx, b.ID, deal.ID, scored[i])
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, score.RankedMatch{Match: m, BuyerName: b.DisplayName()})
	}
	score.Rank(ranked)

	zap.L().Info("matching: deal scored",
		zap.String("deal_id", dealID),
		zap.Int("buyers", len(buyers)))
	return ranked, nil
}

// scoreBuyer calls the oracle under the per-call timeout. Any failure yields
// empty dimensions, which aggregate as neutral 50 / low confidence.
func (s *Session) scoreBuyer(ctx context.Context, b *model.BuyerProfile, d *model.DealProfile) *score.Dimensions {
	callCtx, cancel := context.WithTimeout(ctx, s.scoreTimeout)
	defer cancel()

	dims, err := s.scorer.Score(callCtx, b, d)
	if err != nil || dims == nil {
		zap.L().Warn("matching: oracle score failed, using neutral defaults",
			zap.String("buyer_id", b.ID),
			zap.String("deal_id", d.ID),
			zap.Error(err))
		return &score.Dimensions{}
	}
	return dims
}

// applyScores folds freshly aggregated score fields onto the stored match
// under the match lock, creating the match row on first score.
func (s *Session) applyScores(ctx context.Context, buyerID, dealID string, scored *model.BuyerDealMatch) (*model.BuyerDealMatch, error) {
	unlock := s.locks.lock(matchKey(buyerID, dealID))
	defer unlock()

	m, err := s.store.GetMatch(ctx, buyerID, dealID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = &model.BuyerDealMatch{BuyerID: buyerID, DealID: dealID, Status: model.MatchUnscored}
	}
	m.ApplyScores(scored)
	if err := s.store.UpsertMatch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// EnrichBuyer applies an extracted field patch to a buyer under its record
// lock, so racing merges from different sources always compare against a
// consistent current state.
func (s *Session) EnrichBuyer(ctx context.Context, buyerID string, patch map[string]any, source model.FieldSource, extractedAt time.Time) (*merge.Result, error) {
	unlock := s.locks.lock("buyer:" + buyerID)
	defer unlock()

	b, err := s.store.GetBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, eris.Errorf("matching: buyer not found: %s", buyerID)
	}

	res, err := merge.ApplyBuyer(b, patch, source, extractedAt)
	if err != nil {
		return nil, err
	}
	if len(res.Applied) > 0 {
		if err := s.store.UpdateBuyer(ctx, b); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// EnrichDeal is the deal counterpart of EnrichBuyer.
func (s *Session) EnrichDeal(ctx context.Context, dealID string, patch map[string]any, source model.FieldSource, extractedAt time.Time) (*merge.Result, error) {
	unlock := s.locks.lock("deal:" + dealID)
	defer unlock()

	d, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, eris.Errorf("matching: deal not found: %s", dealID)
	}

	res, err := merge.ApplyDeal(d, patch, source, extractedAt)
	if err != nil {
		return nil, err
	}
	if len(res.Applied) > 0 {
		if err := s.store.UpdateDeal(ctx, d); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func matchKey(buyerID, dealID string) string {
	return "match:" + buyerID + ":" + dealID
}
