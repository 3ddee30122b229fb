package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"marketReco/domain"
	"marketReco/pkg/config"
)

// Content score term weights. Policy constants, not user-configurable.
const (
	contentWeightCategory = 0.4
	contentWeightBrand    = 0.3
	contentWeightPrice    = 0.2
	contentWeightQuality  = 0.1
)

const (
	rationaleCooccurrence = "frequently bought together with your purchases"
	rationaleContent      = "matches your category and brand preferences"
	rationaleHybrid       = "combined purchase, browsing and favorite signals"
)

// StrategyOutput is keyed into the run context under StageStrategy.
type StrategyOutput struct {
	Items map[uint][]RecommendationItem
}

// StrategyStage computes raw candidate scores per user with the configured
// algorithm. Scores are strategy-scale, cross-user normalization happens in
// the ranker.
type StrategyStage struct {
	catalog CatalogRepository
}

func NewStrategyStage(catalog CatalogRepository) *StrategyStage {
	return &StrategyStage{catalog: catalog}
}

func (s *StrategyStage) Name() string { return StageStrategy }

func (s *StrategyStage) Run(ctx context.Context, rc *RunContext) (int, error) {
	raw, ok := rc.Output(StageFeatures)
	if !ok {
		return 0, errors.New("missing feature output")
	}
	features, ok := raw.(*FeatureOutput)
	if !ok {
		return 0, fmt.Errorf("unexpected feature output type %T", raw)
	}

	pool, err := s.catalog.FindInStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("load candidate pool: %w", err)
	}

	out := &StrategyOutput{
		Items: make(map[uint][]RecommendationItem),
	}

	for userID, uf := range features.Users {
		candidates := eligibleCandidates(pool, uf, rc.Config.ExcludeRecentPurchaseDays)
		items := ScoreCandidates(uf, candidates, rc.Config)
		if len(items) == 0 {
			continue
		}
		out.Items[userID] = items
	}

	rc.SetOutput(StageStrategy, out)

	return len(out.Items), nil
}

// eligibleCandidates removes products the user purchased within the
// exclusion window. The pool itself is already restricted to stock > 0.
func eligibleCandidates(pool []domain.Product, uf *UserFeatures, excludeDays int) []domain.Product {
	out := make([]domain.Product, 0, len(pool))
	for _, p := range pool {
		if pf, ok := uf.Products[p.ID]; ok {
			if pf.PurchaseFreq > 0 && pf.PurchaseRecencyDays <= float64(excludeDays) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// ScoreCandidates applies the configured strategy and truncates to topK
// after a descending sort on raw score.
func ScoreCandidates(uf *UserFeatures, candidates []domain.Product, cfg config.RecoConfig) []RecommendationItem {
	var items []RecommendationItem

	switch cfg.Strategy {
	case config.StrategyCooccurrence:
		scores := cooccurrenceScores(uf, candidates)
		items = toItems(scores, config.StrategyCooccurrence, rationaleCooccurrence)
	case config.StrategyContent:
		scores := contentScores(uf, candidates)
		items = toItems(scores, config.StrategyContent, rationaleContent)
	case config.StrategyHybrid:
		items = hybridItems(uf, candidates, cfg)
	}

	sortItemsDesc(items)

	if len(items) > cfg.TopK {
		items = items[:cfg.TopK]
	}

	return items
}

// cooccurrenceScores sums freqBuy(source) x coPurchase(source, candidate)
// over every product the user already bought. Zero scores are dropped.
func cooccurrenceScores(uf *UserFeatures, candidates []domain.Product) map[uint64]float64 {
	scores := make(map[uint64]float64)

	for _, c := range candidates {
		total := 0.0
		for _, pf := range uf.Products {
			if pf.PurchaseFreq <= 0 || pf.ProductID == c.ID {
				continue
			}
			if count, ok := pf.CoPurchase[c.ID]; ok {
				total += pf.PurchaseFreq * float64(count)
			}
		}
		if total > 0 {
			scores[c.ID] = total
		}
	}

	return scores
}

// contentScores matches candidate attributes against the user's preference
// maps. A user with no purchase-derived preferences gets nothing here; the
// quality term alone must not drive cold-start recommendations.
func contentScores(uf *UserFeatures, candidates []domain.Product) map[uint64]float64 {
	if len(uf.CategoryPrefs) == 0 && len(uf.BrandPrefs) == 0 && len(uf.PricePrefs) == 0 {
		return map[uint64]float64{}
	}

	scores := make(map[uint64]float64)

	for _, c := range candidates {
		categoryScore := 0.0
		for _, cat := range c.Categories {
			categoryScore += uf.CategoryPrefs[cat]
		}
		brandScore := uf.BrandPrefs[c.Brand]
		priceScore := uf.PricePrefs[priceBucket(c.Price)]
		qualityScore := c.Rating * math.Log10(math.Max(float64(c.ReviewCount), 1))

		total := contentWeightCategory*categoryScore +
			contentWeightBrand*brandScore +
			contentWeightPrice*priceScore +
			contentWeightQuality*qualityScore

		if total > 0 {
			scores[c.ID] = total
		}
	}

	return scores
}

// hybridItems min-max normalizes each sub-strategy's score set within
// itself, then combines with the configured weights. A candidate missing
// from a sub-strategy contributes 0 for that term; the favorite flag is a
// third independent term.
func hybridItems(uf *UserFeatures, candidates []domain.Product, cfg config.RecoConfig) []RecommendationItem {
	normCoocc := normalizeScoreSet(cooccurrenceScores(uf, candidates))
	normContent := normalizeScoreSet(contentScores(uf, candidates))

	items := make([]RecommendationItem, 0, len(candidates))

	for _, c := range candidates {
		favorite := 0.0
		if pf, ok := uf.Products[c.ID]; ok && pf.Favorited {
			favorite = 1.0
		}

		score := cfg.WeightPurchase*normCoocc[c.ID] +
			cfg.WeightView*normContent[c.ID] +
			cfg.WeightFavorite*favorite

		if score <= 0 {
			continue
		}

		items = append(items, RecommendationItem{
			ProductID: c.ID,
			Score:     score,
			Rationale: rationaleHybrid,
			Strategy:  config.StrategyHybrid,
		})
	}

	return items
}

// normalizeScoreSet rescales a non-empty score set to [0,1] within itself.
// A flat set maps to 1.0: every member is equally the best of that signal.
func normalizeScoreSet(scores map[uint64]float64) map[uint64]float64 {
	if len(scores) == 0 {
		return scores
	}

	first := true
	var min, max float64
	for _, v := range scores {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make(map[uint64]float64, len(scores))
	if max == min {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}

	for id, v := range scores {
		out[id] = (v - min) / (max - min)
	}
	return out
}

func toItems(scores map[uint64]float64, strategy, rationale string) []RecommendationItem {
	items := make([]RecommendationItem, 0, len(scores))
	for id, score := range scores {
		items = append(items, RecommendationItem{
			ProductID: id,
			Score:     score,
			Rationale: rationale,
			Strategy:  strategy,
		})
	}
	return items
}

func sortItemsDesc(items []RecommendationItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score == items[j].Score {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].Score > items[j].Score
	})
}
