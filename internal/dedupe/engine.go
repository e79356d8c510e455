package dedupe

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow/internal/merge"
	"github.com/sells-group/dealflow/internal/model"
)

// Store is the persistence surface the engine needs to execute a merge.
// MergeBuyers must be atomic: persist the updated survivor, repoint
// contacts and transcripts, collapse (buyer, deal) match collisions keeping
// the higher composite score, and delete the removed records, or change
// nothing.
type Store interface {
	MergeBuyers(ctx context.Context, survivor *model.BuyerProfile, removedIDs []string) error
}

// Engine finds duplicate buyer groups and executes their merges.
type Engine struct {
	store Store
}

// New creates a dedup engine backed by the given store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// FindGroups scans buyers for probable duplicates. Domain groups are formed
// first; buyers without a usable domain, or left in singleton domain groups,
// fall back to normalized-name grouping. Singleton groups are discarded.
// Output order is deterministic: domain groups before name groups, keys
// ascending, members oldest first.
func (e *Engine) FindGroups(buyers []model.BuyerProfile) []model.DuplicateGroup {
	byID := indexBuyers(buyers)

	byDomain := make(map[string][]string)
	for _, b := range buyers {
		if d := NormalizeDomain(b.Website); d != "" {
			byDomain[d] = append(byDomain[d], b.ID)
		}
	}

	var groups []model.DuplicateGroup
	grouped := make(map[string]bool)

	for _, key := range sortedKeys(byDomain) {
		ids := byDomain[key]
		if len(ids) < 2 {
			continue
		}
		groups = append(groups, e.buildGroup(key, model.MatchByDomain, ids, byID))
		for _, id := range ids {
			grouped[id] = true
		}
	}

	// Name pass over everything the domain pass did not claim.
	byName := make(map[string][]string)
	for _, b := range buyers {
		if grouped[b.ID] {
			continue
		}
		if n := NormalizeName(b.DisplayName()); n != "" {
			byName[n] = append(byName[n], b.ID)
		}
	}

	for _, key := range sortedKeys(byName) {
		ids := byName[key]
		if len(ids) < 2 {
			continue
		}
		groups = append(groups, e.buildGroup(key, model.MatchByName, ids, byID))
	}

	zap.L().Info("dedupe: scan complete",
		zap.Int("buyers", len(buyers)),
		zap.Int("groups", len(groups)),
	)
	return groups
}

// buildGroup orders members, picks the keeper, and proposes merged names.
func (e *Engine) buildGroup(key string, matchType model.DuplicateMatchType, ids []string, byID map[string]*model.BuyerProfile) model.DuplicateGroup {
	members := make([]*model.BuyerProfile, 0, len(ids))
	for _, id := range ids {
		members = append(members, byID[id])
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}
		return members[i].ID < members[j].ID
	})

	keeper := pickKeeper(members)

	group := model.DuplicateGroup{
		Key:       key,
		MatchType: matchType,
		KeeperID:  keeper.ID,
	}
	for _, m := range members {
		group.MemberIDs = append(group.MemberIDs, m.ID)
	}

	// Display name: prefer any member's platform company name over a bare
	// PE-firm name, keeper first.
	group.ProposedDisplayName = keeper.DisplayName()
	if keeper.PlatformCompanyName == "" {
		for _, m := range members {
			if m.PlatformCompanyName != "" {
				group.ProposedDisplayName = m.PlatformCompanyName
				break
			}
		}
	}

	// PE-firm name: keeper's, unless another member carries a materially
	// longer (more specific) one. Surfaced for confirmation only.
	group.ProposedPEFirmName = keeper.PEFirmName
	for _, m := range members {
		if len(m.PEFirmName) > len(group.ProposedPEFirmName)+4 {
			group.ProposedPEFirmName = m.PEFirmName
		}
	}

	return group
}

// pickKeeper returns the member with the most populated profile fields,
// ties broken by earliest creation. Dependent records reference the keeper
// id by foreign key, so the richest record must survive.
func pickKeeper(members []*model.BuyerProfile) *model.BuyerProfile {
	keeper := members[0]
	best := keeper.PopulatedFieldCount()
	for _, m := range members[1:] {
		n := m.PopulatedFieldCount()
		if n > best || (n == best && m.CreatedAt.Before(keeper.CreatedAt)) {
			keeper, best = m, n
		}
	}
	return keeper
}

// ExecuteMerge folds every non-keeper member into the keeper at each
// field's original provenance, then atomically persists the merge. On
// store failure nothing changes: the fold mutates only an in-memory copy.
func (e *Engine) ExecuteMerge(ctx context.Context, group model.DuplicateGroup, buyers []model.BuyerProfile) (*model.MergeOutcome, error) {
	byID := indexBuyers(buyers)

	keeperSrc, ok := byID[group.KeeperID]
	if !ok {
		return nil, eris.New("dedupe: keeper not found in buyer set")
	}
	survivor := *keeperSrc
	survivor.ExtractionSources = keeperSrc.ExtractionSources.Clone()

	var removed []string
	var nonKeepers []*model.BuyerProfile
	for _, id := range group.MemberIDs {
		if id == group.KeeperID {
			continue
		}
		m, ok := byID[id]
		if !ok {
			return nil, eris.New("dedupe: group member not found in buyer set")
		}
		nonKeepers = append(nonKeepers, m)
		removed = append(removed, id)
	}
	if len(nonKeepers) == 0 {
		return nil, eris.New("dedupe: group has no duplicates to merge")
	}

	// Fold oldest first so a newer same-rank value refreshes an older one.
	sort.Slice(nonKeepers, func(i, j int) bool {
		return nonKeepers[i].CreatedAt.Before(nonKeepers[j].CreatedAt)
	})
	for _, m := range nonKeepers {
		res := merge.FoldBuyer(&survivor, m)
		zap.L().Debug("dedupe: folded duplicate",
			zap.String("survivor_id", survivor.ID),
			zap.String("duplicate_id", m.ID),
			zap.Int("fields_applied", len(res.Applied)),
			zap.Int("fields_skipped", len(res.Skipped)),
		)
	}
	survivor.UpdatedAt = time.Now().UTC()

	if err := e.store.MergeBuyers(ctx, &survivor, removed); err != nil {
		return nil, eris.Wrapf(err, "dedupe: merge group %s", group.Key)
	}

	zap.L().Info("dedupe: group merged",
		zap.String("key", group.Key),
		zap.String("match_type", string(group.MatchType)),
		zap.String("survivor_id", survivor.ID),
		zap.Int("removed", len(removed)),
	)
	return &model.MergeOutcome{SurvivorID: survivor.ID, RemovedIDs: removed}, nil
}

// MergeAll executes every group, isolating failures to the failing group.
// Committed groups stay committed; the tally reports the final counts.
func (e *Engine) MergeAll(ctx context.Context, groups []model.DuplicateGroup, buyers []model.BuyerProfile) (model.BulkTally, []model.MergeOutcome) {
	var tally model.BulkTally
	var outcomes []model.MergeOutcome

	for _, g := range groups {
		if ctx.Err() != nil {
			tally.Skipped += len(groups) - tally.Succeeded - tally.Failed
			break
		}
		outcome, err := e.ExecuteMerge(ctx, g, buyers)
		if err != nil {
			tally.Failed++
			zap.L().Error("dedupe: group merge failed",
				zap.String("key", g.Key),
				zap.Error(err),
			)
			continue
		}
		tally.Succeeded++
		outcomes = append(outcomes, *outcome)
	}
	return tally, outcomes
}

func indexBuyers(buyers []model.BuyerProfile) map[string]*model.BuyerProfile {
	byID := make(map[string]*model.BuyerProfile, len(buyers))
	for i := range buyers {
		byID[buyers[i].ID] = &buyers[i]
	}
	return byID
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
