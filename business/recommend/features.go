package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketReco/domain"
)

// Price buckets used for both preference aggregation and candidate matching.
const (
	PriceBucketLow     = "low"
	PriceBucketMedium  = "medium"
	PriceBucketHigh    = "high"
	PriceBucketPremium = "premium"
)

func priceBucket(price float64) string {
	switch {
	case price < 50:
		return PriceBucketLow
	case price < 200:
		return PriceBucketMedium
	case price < 500:
		return PriceBucketHigh
	default:
		return PriceBucketPremium
	}
}

// FeatureOutput is keyed into the run context under StageFeatures.
type FeatureOutput struct {
	Users   map[uint]*UserFeatures
	Matrix  CoPurchaseMatrix
	Catalog map[uint64]domain.Product
}

// FeatureStage fuses the three summaries into per-user feature bundles plus
// the global co-purchase matrix. Catalog attributes are fetched once for the
// union of referenced products; products gone from the catalog are skipped.
type FeatureStage struct {
	catalog CatalogRepository
}

func NewFeatureStage(catalog CatalogRepository) *FeatureStage {
	return &FeatureStage{catalog: catalog}
}

func (s *FeatureStage) Name() string { return StageFeatures }

func (s *FeatureStage) Run(ctx context.Context, rc *RunContext) (int, error) {
	raw, ok := rc.Output(StageIngestion)
	if !ok {
		return 0, errors.New("missing ingestion output")
	}
	in, ok := raw.(*IngestionOutput)
	if !ok {
		return 0, fmt.Errorf("unexpected ingestion output type %T", raw)
	}

	matrix := BuildCoPurchaseMatrix(in.Purchases)

	catalog, err := s.fetchCatalog(ctx, in)
	if err != nil {
		return 0, err
	}

	users := make(map[uint]*UserFeatures)
	now := time.Now()

	for _, uid := range unionUserIDs(in) {
		uf := buildUserFeatures(uid, in, matrix, catalog, now)
		users[uid] = uf
	}

	rc.SetOutput(StageFeatures, &FeatureOutput{
		Users:   users,
		Matrix:  matrix,
		Catalog: catalog,
	})

	return len(users), nil
}

// BuildCoPurchaseMatrix links every pair of distinct products purchased by
// the same user, symmetrically, aggregated across all users.
func BuildCoPurchaseMatrix(purchases map[uint]*UserPurchaseSummary) CoPurchaseMatrix {
	matrix := make(CoPurchaseMatrix)

	for _, sum := range purchases {
		seen := make(map[uint64]struct{})
		products := make([]uint64, 0, len(sum.Events))
		for _, ev := range sum.Events {
			if _, dup := seen[ev.ProductID]; dup {
				continue
			}
			seen[ev.ProductID] = struct{}{}
			products = append(products, ev.ProductID)
		}

		for i := 0; i < len(products); i++ {
			for j := i + 1; j < len(products); j++ {
				matrix.increment(products[i], products[j])
				matrix.increment(products[j], products[i])
			}
		}
	}

	return matrix
}

func (s *FeatureStage) fetchCatalog(ctx context.Context, in *IngestionOutput) (map[uint64]domain.Product, error) {
	idSet := make(map[uint64]struct{})
	for _, sum := range in.Purchases {
		for _, ev := range sum.Events {
			idSet[ev.ProductID] = struct{}{}
		}
	}
	for _, sum := range in.Views {
		for _, ev := range sum.Events {
			idSet[ev.ProductID] = struct{}{}
		}
	}
	for _, sum := range in.Favorites {
		for _, ev := range sum.Events {
			idSet[ev.ProductID] = struct{}{}
		}
	}

	ids := make([]uint64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog attributes: %w", err)
	}

	catalog := make(map[uint64]domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	return catalog, nil
}

func unionUserIDs(in *IngestionOutput) []uint {
	set := make(map[uint]struct{})
	for uid := range in.Purchases {
		set[uid] = struct{}{}
	}
	for uid := range in.Views {
		set[uid] = struct{}{}
	}
	for uid := range in.Favorites {
		set[uid] = struct{}{}
	}

	ids := make([]uint, 0, len(set))
	for uid := range set {
		ids = append(ids, uid)
	}
	return ids
}

func buildUserFeatures(
	userID uint,
	in *IngestionOutput,
	matrix CoPurchaseMatrix,
	catalog map[uint64]domain.Product,
	now time.Time,
) *UserFeatures {

	uf := &UserFeatures{
		UserID:        userID,
		Products:      make(map[uint64]*ProductFeatures),
		CategoryPrefs: make(map[string]float64),
		BrandPrefs:    make(map[string]float64),
		PricePrefs:    make(map[string]float64),
	}

	get := func(productID uint64) (*ProductFeatures, bool) {
		if pf, ok := uf.Products[productID]; ok {
			return pf, true
		}
		p, ok := catalog[productID]
		if !ok {
			// gone from the catalog, skip silently
			return nil, false
		}
		pf := &ProductFeatures{
			ProductID:   productID,
			CoPurchase:  matrix.Row(productID),
			Categories:  p.Categories,
			Brand:       p.Brand,
			PriceBucket: priceBucket(p.Price),
			Rating:      p.Rating,
			ReviewCount: p.ReviewCount,
		}
		uf.Products[productID] = pf
		return pf, true
	}

	touch := func(t time.Time) {
		if uf.FirstActivity.IsZero() || t.Before(uf.FirstActivity) {
			uf.FirstActivity = t
		}
		if t.After(uf.LastActivity) {
			uf.LastActivity = t
		}
	}

	totalPurchases := 0
	totalViews := 0

	if sum, ok := in.Purchases[userID]; ok {
		lastPurchase := make(map[uint64]time.Time)
		for _, ev := range sum.Events {
			touch(ev.CreatedAt)
			totalPurchases++

			pf, ok := get(ev.ProductID)
			if !ok {
				continue
			}
			pf.PurchaseFreq += float64(ev.Quantity)

			if ev.CreatedAt.After(lastPurchase[ev.ProductID]) {
				lastPurchase[ev.ProductID] = ev.CreatedAt
				pf.PurchaseRecencyDays = daysSince(ev.CreatedAt, now)
			}

			// purchases are the only signal driving preference weighting
			for _, cat := range pf.Categories {
				uf.CategoryPrefs[cat]++
			}
			if pf.Brand != "" {
				uf.BrandPrefs[pf.Brand]++
			}
			uf.PricePrefs[pf.PriceBucket]++
		}
	}

	if sum, ok := in.Views[userID]; ok {
		type viewAgg struct {
			dwellSum float64
			count    int
			latest   time.Time
		}
		agg := make(map[uint64]*viewAgg)

		for _, ev := range sum.Events {
			touch(ev.ViewedAt)
			totalViews++

			a, ok := agg[ev.ProductID]
			if !ok {
				a = &viewAgg{}
				agg[ev.ProductID] = a
			}
			a.dwellSum += ev.DwellSeconds
			a.count++
			if ev.ViewedAt.After(a.latest) {
				a.latest = ev.ViewedAt
			}
		}

		for productID, a := range agg {
			pf, ok := get(productID)
			if !ok {
				continue
			}
			pf.AvgViewDwell = a.dwellSum / float64(a.count)
			pf.ViewRecencyDays = daysSince(a.latest, now)
		}
	}

	if sum, ok := in.Favorites[userID]; ok {
		for _, ev := range sum.Events {
			touch(ev.CreatedAt)
			pf, ok := get(ev.ProductID)
			if !ok {
				continue
			}
			pf.Favorited = true
		}
	}

	normalizePrefs(uf.CategoryPrefs)
	normalizePrefs(uf.BrandPrefs)
	normalizePrefs(uf.PricePrefs)

	activeDays := daysSince(uf.FirstActivity, now)
	if activeDays < 1 {
		activeDays = 1
	}
	uf.PurchasesPerDay = float64(totalPurchases) / activeDays
	uf.ViewsPerDay = float64(totalViews) / activeDays

	return uf
}

func normalizePrefs(prefs map[string]float64) {
	total := 0.0
	for _, v := range prefs {
		total += v
	}
	if total == 0 {
		return
	}
	for k, v := range prefs {
		prefs[k] = v / total
	}
}

func daysSince(t time.Time, now time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return now.Sub(t).Hours() / 24
}
