package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"marketReco/domain"
)

// Business-rule thresholds. Policy constants, not user-configurable.
const (
	minCandidateRating  = 2.0
	minCandidateReviews = 3
)

// RankingOutput is keyed into the run context under StageRanking.
type RankingOutput struct {
	Results []RankingResult
}

// RankingStage normalizes raw scores to [0,1] per user, resolves live
// product state, applies the eligibility filters and truncates to topK.
type RankingStage struct {
	catalog CatalogRepository
}

func NewRankingStage(catalog CatalogRepository) *RankingStage {
	return &RankingStage{catalog: catalog}
}

func (s *RankingStage) Name() string { return StageRanking }

func (s *RankingStage) Run(ctx context.Context, rc *RunContext) (int, error) {
	raw, ok := rc.Output(StageStrategy)
	if !ok {
		return 0, errors.New("missing strategy output")
	}
	in, ok := raw.(*StrategyOutput)
	if !ok {
		return 0, fmt.Errorf("unexpected strategy output type %T", raw)
	}

	live, err := s.fetchLiveState(ctx, in)
	if err != nil {
		return 0, err
	}

	out := &RankingOutput{
		Results: make([]RankingResult, 0, len(in.Items)),
	}

	userIDs := make([]uint, 0, len(in.Items))
	for userID := range in.Items {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	for _, userID := range userIDs {
		result := RankItems(userID, rc.Config.Strategy, in.Items[userID], live, rc.Config.TopK)
		out.Results = append(out.Results, result)

		CandidatesFilteredTotal.WithLabelValues("availability").Add(float64(result.Filters.Availability))
		CandidatesFilteredTotal.WithLabelValues("stock").Add(float64(result.Filters.Stock))
		CandidatesFilteredTotal.WithLabelValues("business_rules").Add(float64(result.Filters.BusinessRules))
	}

	rc.SetOutput(StageRanking, out)

	return len(out.Results), nil
}

func (s *RankingStage) fetchLiveState(ctx context.Context, in *StrategyOutput) (map[uint64]domain.Product, error) {
	idSet := make(map[uint64]struct{})
	for _, items := range in.Items {
		for _, item := range items {
			idSet[item.ProductID] = struct{}{}
		}
	}

	ids := make([]uint64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch live product state: %w", err)
	}

	live := make(map[uint64]domain.Product, len(products))
	for _, p := range products {
		live[p.ID] = p
	}
	return live, nil
}

// RankItems applies normalization, filtering and truncation for one user.
// The filter counters in the result are exact by construction.
func RankItems(
	userID uint,
	strategy string,
	items []RecommendationItem,
	live map[uint64]domain.Product,
	topK int,
) RankingResult {

	result := RankingResult{
		UserID:   userID,
		Strategy: strategy,
	}
	result.TotalConsidered = len(items)

	normalized := normalizeItemScores(items)

	kept := make([]domain.RankedRecommendation, 0, len(items))

	for i, item := range items {
		p, ok := live[item.ProductID]
		if !ok {
			result.Filters.Availability++
			continue
		}
		if p.Stock <= 0 {
			result.Filters.Stock++
			continue
		}
		if p.Rating < minCandidateRating || p.ReviewCount < minCandidateReviews {
			result.Filters.BusinessRules++
			continue
		}

		kept = append(kept, domain.RankedRecommendation{
			ProductID: item.ProductID,
			Score:     normalized[i],
			RawScore:  item.Score,
			Rationale: item.Rationale,
			Strategy:  item.Strategy,
			Available: true,
			Product: domain.ProductSnapshot{
				ProductName:  p.ProductName,
				Price:        p.Price,
				Stock:        p.Stock,
				Brand:        p.Brand,
				ThumbnailURL: p.ThumbnailURL,
				Rating:       p.Rating,
				ReviewCount:  p.ReviewCount,
			},
		})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score == kept[j].Score {
			return kept[i].ProductID < kept[j].ProductID
		}
		return kept[i].Score > kept[j].Score
	})

	// The strategy stage already truncated to topK, so this only fires on a
	// tightened per-run override.
	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}

	result.Items = kept
	result.FinalCount = len(kept)
	result.FilteredOut = result.Filters.Availability + result.Filters.Stock + result.Filters.BusinessRules

	return result
}

// normalizeItemScores min-max rescales one user's raw scores to [0,1]. A
// flat list maps to 0.5.
func normalizeItemScores(items []RecommendationItem) []float64 {
	out := make([]float64, len(items))
	if len(items) == 0 {
		return out
	}

	min, max := items[0].Score, items[0].Score
	for _, item := range items[1:] {
		if item.Score < min {
			min = item.Score
		}
		if item.Score > max {
			max = item.Score
		}
	}

	if max == min {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	for i, item := range items {
		out[i] = (item.Score - min) / (max - min)
	}
	return out
}
