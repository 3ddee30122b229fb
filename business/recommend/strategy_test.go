package recommend

import (
	"math"
	"testing"

	"marketReco/domain"
	"marketReco/pkg/config"
)

func featuresWith(products map[uint64]*ProductFeatures) *UserFeatures {
	return &UserFeatures{
		UserID:        1,
		Products:      products,
		CategoryPrefs: map[string]float64{},
		BrandPrefs:    map[string]float64{},
		PricePrefs:    map[string]float64{},
	}
}

func TestCooccurrenceScores(t *testing.T) {
	uf := featuresWith(map[uint64]*ProductFeatures{
		10: {ProductID: 10, PurchaseFreq: 2, CoPurchase: map[uint64]int{20: 3}},
	})

	candidates := []domain.Product{
		{ID: 20},
		{ID: 30},
	}

	scores := cooccurrenceScores(uf, candidates)

	if scores[20] != 6 {
		t.Fatalf("expected score 6 for product 20, got %v", scores[20])
	}
	if _, ok := scores[30]; ok {
		t.Fatal("unlinked candidate must not score")
	}
}

func TestCooccurrence_PoolWithoutLinks(t *testing.T) {
	// user bought A and B, but the eligible pool only contains C which was
	// never co-purchased with either; the user ends with no candidates.
	uf := featuresWith(map[uint64]*ProductFeatures{
		10: {ProductID: 10, PurchaseFreq: 1, CoPurchase: map[uint64]int{20: 1}},
		20: {ProductID: 20, PurchaseFreq: 1, CoPurchase: map[uint64]int{10: 1}},
	})

	cfg := testConfig()
	cfg.Strategy = config.StrategyCooccurrence

	items := ScoreCandidates(uf, []domain.Product{{ID: 30}}, cfg)
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestContentScores_ColdStart(t *testing.T) {
	uf := featuresWith(map[uint64]*ProductFeatures{})

	candidates := []domain.Product{
		{ID: 10, Rating: 4.9, ReviewCount: 1000, Categories: []string{"garden"}},
	}

	scores := contentScores(uf, candidates)
	if len(scores) != 0 {
		t.Fatal("a user without preferences must not get content scores")
	}
}

func TestContentScores_Weighting(t *testing.T) {
	uf := featuresWith(nil)
	uf.CategoryPrefs = map[string]float64{"garden": 0.8}
	uf.BrandPrefs = map[string]float64{"acme": 0.6}
	uf.PricePrefs = map[string]float64{PriceBucketLow: 1.0}

	candidate := domain.Product{
		ID:          10,
		Categories:  []string{"garden"},
		Brand:       "acme",
		Price:       30,
		Rating:      4.0,
		ReviewCount: 100,
	}

	scores := contentScores(uf, []domain.Product{candidate})

	want := 0.4*0.8 + 0.3*0.6 + 0.2*1.0 + 0.1*(4.0*math.Log10(100))
	if math.Abs(scores[10]-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, scores[10])
	}
}

func TestHybrid_FavoriteOnlyUser(t *testing.T) {
	// a user whose only signal is one favorite gets exactly the favorite
	// weight for that product and nothing else.
	uf := featuresWith(map[uint64]*ProductFeatures{
		10: {ProductID: 10, Favorited: true},
	})

	cfg := testConfig()

	items := ScoreCandidates(uf, []domain.Product{{ID: 10}, {ID: 20}}, cfg)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ProductID != 10 {
		t.Fatalf("expected product 10, got %d", items[0].ProductID)
	}
	if math.Abs(items[0].Score-cfg.WeightFavorite) > 1e-9 {
		t.Fatalf("expected score %v, got %v", cfg.WeightFavorite, items[0].Score)
	}
}

func TestHybrid_CombinesNormalizedSignals(t *testing.T) {
	uf := featuresWith(map[uint64]*ProductFeatures{
		10: {ProductID: 10, PurchaseFreq: 1, CoPurchase: map[uint64]int{20: 2, 30: 1}},
	})
	uf.BrandPrefs = map[string]float64{"acme": 1.0}

	cfg := testConfig()

	candidates := []domain.Product{
		{ID: 20, Brand: "acme"},
		{ID: 30, Brand: "other"},
	}

	items := ScoreCandidates(uf, candidates, cfg)

	byID := make(map[uint64]float64)
	for _, item := range items {
		byID[item.ProductID] = item.Score
	}

	// cooccurrence raw: {20: 2, 30: 1} -> normalized {20: 1, 30: 0}
	// content raw: only 20 scores (brand match) -> flat set, normalized {20: 1}
	want20 := cfg.WeightPurchase*1.0 + cfg.WeightView*1.0
	if math.Abs(byID[20]-want20) > 1e-9 {
		t.Fatalf("expected product 20 score %v, got %v", want20, byID[20])
	}
	if _, ok := byID[30]; ok {
		t.Fatalf("product 30 has zero combined score and must be dropped, got %v", byID[30])
	}
}

func TestScoreCandidates_TopKAndOrder(t *testing.T) {
	uf := featuresWith(map[uint64]*ProductFeatures{
		1: {ProductID: 1, PurchaseFreq: 1, CoPurchase: map[uint64]int{10: 1, 20: 2, 30: 3, 40: 4}},
	})

	cfg := testConfig()
	cfg.Strategy = config.StrategyCooccurrence
	cfg.TopK = 2

	items := ScoreCandidates(uf, []domain.Product{{ID: 10}, {ID: 20}, {ID: 30}, {ID: 40}}, cfg)

	if len(items) != 2 {
		t.Fatalf("expected topK=2 items, got %d", len(items))
	}
	if items[0].ProductID != 40 || items[1].ProductID != 30 {
		t.Fatalf("expected [40 30], got [%d %d]", items[0].ProductID, items[1].ProductID)
	}
	if items[0].Score < items[1].Score {
		t.Fatal("items must be sorted by descending score")
	}
}

func TestEligibleCandidates_ExcludesRecentPurchases(t *testing.T) {
	uf := featuresWith(map[uint64]*ProductFeatures{
		10: {ProductID: 10, PurchaseFreq: 1, PurchaseRecencyDays: 3},
		20: {ProductID: 20, PurchaseFreq: 1, PurchaseRecencyDays: 60},
	})

	pool := []domain.Product{{ID: 10}, {ID: 20}, {ID: 30}}

	out := eligibleCandidates(pool, uf, 14)

	ids := make(map[uint64]bool)
	for _, p := range out {
		ids[p.ID] = true
	}

	if ids[10] {
		t.Fatal("product bought 3 days ago must be excluded")
	}
	if !ids[20] || !ids[30] {
		t.Fatalf("products 20 and 30 must remain, got %v", ids)
	}
}
