package recommend

import (
	"context"
	"math"
	"testing"
	"time"

	"marketReco/domain"
)

func TestPriceBucket(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{10, PriceBucketLow},
		{49.99, PriceBucketLow},
		{50, PriceBucketMedium},
		{199.99, PriceBucketMedium},
		{200, PriceBucketHigh},
		{499.99, PriceBucketHigh},
		{500, PriceBucketPremium},
		{10000, PriceBucketPremium},
	}

	for _, tc := range cases {
		if got := priceBucket(tc.price); got != tc.want {
			t.Errorf("priceBucket(%v): want %s, got %s", tc.price, tc.want, got)
		}
	}
}

func TestBuildCoPurchaseMatrix(t *testing.T) {
	purchases := map[uint]*UserPurchaseSummary{
		1: {UserID: 1, Events: []PurchaseEvent{
			{ProductID: 10}, {ProductID: 20}, {ProductID: 30},
			{ProductID: 10}, // repeat purchase must not inflate pairs
		}},
		2: {UserID: 2, Events: []PurchaseEvent{
			{ProductID: 10}, {ProductID: 20},
		}},
	}

	matrix := BuildCoPurchaseMatrix(purchases)

	if matrix[10][20] != 2 {
		t.Fatalf("expected matrix[10][20]=2, got %d", matrix[10][20])
	}
	if matrix[20][10] != matrix[10][20] {
		t.Fatal("matrix must be symmetric")
	}
	if matrix[10][30] != 1 || matrix[30][20] != 1 {
		t.Fatalf("unexpected pair counts: %v", matrix)
	}
	if _, ok := matrix[10][10]; ok {
		t.Fatal("self pairs must not exist")
	}
}

func TestFeatureStage_BuildsUserFeatures(t *testing.T) {
	now := time.Now()

	catalog := &fakeCatalog{products: map[uint64]domain.Product{
		10: {ID: 10, Categories: []string{"garden"}, Brand: "acme", Price: 30, Rating: 4.5, ReviewCount: 12},
		20: {ID: 20, Categories: []string{"garden", "tools"}, Brand: "zenith", Price: 250, Rating: 4.0, ReviewCount: 8},
	}}

	stage := NewFeatureStage(catalog)
	rc := testRunContext(testConfig())

	rc.SetOutput(StageIngestion, &IngestionOutput{
		Purchases: map[uint]*UserPurchaseSummary{
			1: {UserID: 1, Events: []PurchaseEvent{
				{UserID: 1, ProductID: 10, Quantity: 2, CreatedAt: now.Add(-48 * time.Hour)},
				{UserID: 1, ProductID: 20, Quantity: 1, CreatedAt: now.Add(-24 * time.Hour)},
			}},
		},
		Views: map[uint]*UserViewSummary{
			1: {UserID: 1, Events: []ViewEvent{
				{UserID: 1, ProductID: 10, DwellSeconds: 10, ViewedAt: now.Add(-2 * time.Hour)},
				{UserID: 1, ProductID: 10, DwellSeconds: 30, ViewedAt: now.Add(-5 * time.Hour)},
			}},
		},
		Favorites: map[uint]*UserFavoriteSummary{
			1: {UserID: 1, Events: []FavoriteEvent{
				{UserID: 1, ProductID: 20, CreatedAt: now.Add(-12 * time.Hour)},
			}},
		},
	})

	processed, err := stage.Run(context.Background(), rc)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 user, got %d", processed)
	}

	raw, _ := rc.Output(StageFeatures)
	out := raw.(*FeatureOutput)

	uf := out.Users[1]
	if uf == nil {
		t.Fatal("missing features for user 1")
	}

	pf10 := uf.Products[10]
	if pf10 == nil || pf10.PurchaseFreq != 2 {
		t.Fatalf("expected product 10 purchase freq 2, got %+v", pf10)
	}
	if math.Abs(pf10.AvgViewDwell-20) > 1e-9 {
		t.Fatalf("expected avg dwell 20, got %v", pf10.AvgViewDwell)
	}

	pf20 := uf.Products[20]
	if pf20 == nil || !pf20.Favorited {
		t.Fatalf("expected product 20 favorited, got %+v", pf20)
	}

	// preferences come from purchase events only and are normalized.
	// events: p10 (garden, acme, low) and p20 (garden+tools, zenith, high)
	if math.Abs(uf.CategoryPrefs["garden"]-2.0/3.0) > 1e-9 {
		t.Fatalf("expected garden pref 2/3, got %v", uf.CategoryPrefs["garden"])
	}
	if math.Abs(uf.BrandPrefs["acme"]-0.5) > 1e-9 {
		t.Fatalf("expected acme pref 0.5, got %v", uf.BrandPrefs["acme"])
	}
	if math.Abs(uf.PricePrefs[PriceBucketLow]-0.5) > 1e-9 {
		t.Fatalf("expected low bucket pref 0.5, got %v", uf.PricePrefs[PriceBucketLow])
	}
}

func TestFeatureStage_SkipsCatalogMissingProducts(t *testing.T) {
	now := time.Now()

	catalog := &fakeCatalog{products: map[uint64]domain.Product{
		10: {ID: 10, Brand: "acme", Price: 30},
	}}

	stage := NewFeatureStage(catalog)
	rc := testRunContext(testConfig())

	rc.SetOutput(StageIngestion, &IngestionOutput{
		Purchases: map[uint]*UserPurchaseSummary{
			1: {UserID: 1, Events: []PurchaseEvent{
				{UserID: 1, ProductID: 10, Quantity: 1, CreatedAt: now.Add(-time.Hour)},
				{UserID: 1, ProductID: 99, Quantity: 1, CreatedAt: now.Add(-time.Hour)},
			}},
		},
		Views:     map[uint]*UserViewSummary{},
		Favorites: map[uint]*UserFavoriteSummary{},
	})

	if _, err := stage.Run(context.Background(), rc); err != nil {
		t.Fatal(err)
	}

	raw, _ := rc.Output(StageFeatures)
	out := raw.(*FeatureOutput)

	uf := out.Users[1]
	if _, ok := uf.Products[99]; ok {
		t.Fatal("product 99 is gone from the catalog and must be skipped")
	}
	if _, ok := uf.Products[10]; !ok {
		t.Fatal("product 10 must be present")
	}
}
