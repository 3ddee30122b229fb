package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketReco/domain"
)

func TestDedupViews(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []ViewEvent{
		{UserID: 1, ProductID: 10, ViewedAt: base},
		{UserID: 1, ProductID: 10, ViewedAt: base.Add(30 * time.Minute)},
		{UserID: 1, ProductID: 10, ViewedAt: base.Add(90 * time.Minute)},
		{UserID: 1, ProductID: 20, ViewedAt: base.Add(10 * time.Minute)},
		{UserID: 2, ProductID: 10, ViewedAt: base.Add(15 * time.Minute)},
	}

	retained := dedupViews(events)

	// user 1 / product 10: base retained, +30m dropped, +90m retained
	// (90m after the last retained view). Other pairs untouched.
	if len(retained) != 4 {
		t.Fatalf("expected 4 retained views, got %d", len(retained))
	}

	count := make(map[uint]int)
	for _, ev := range retained {
		count[ev.UserID]++
	}
	if count[1] != 3 || count[2] != 1 {
		t.Fatalf("unexpected per-user retention: %v", count)
	}
}

func TestOrderCountsAsPurchase(t *testing.T) {
	cases := []struct {
		orderStatus   string
		paymentStatus string
		want          bool
	}{
		{domain.OrderStatusDelivered, domain.PaymentStatusPaid, true},
		{domain.OrderStatusConfirmed, domain.PaymentStatusPartiallyRefunded, true},
		{domain.OrderStatusShipped, domain.PaymentStatusPaid, true},
		{domain.OrderStatusPending, domain.PaymentStatusPaid, false},
		{domain.OrderStatusCancelled, domain.PaymentStatusPaid, false},
		{domain.OrderStatusDelivered, domain.PaymentStatusUnpaid, false},
		{domain.OrderStatusDelivered, domain.PaymentStatusRefunded, false},
	}

	for _, tc := range cases {
		got := orderCountsAsPurchase(domain.Order{
			OrderStatus:   tc.orderStatus,
			PaymentStatus: tc.paymentStatus,
		})
		if got != tc.want {
			t.Errorf("%s/%s: want %v, got %v", tc.orderStatus, tc.paymentStatus, tc.want, got)
		}
	}
}

func TestIngestionRun_SingleSourceFailureDegrades(t *testing.T) {
	now := time.Now()

	stage := NewIngestionStage(
		&fakeOrderRepo{err: errors.New("orders down")},
		&fakeBehaviorRepo{},
		&fakeViewRepo{views: []domain.ProductView{
			{UserID: 1, ProductID: 10, DwellSeconds: 12, ViewedAt: now.Add(-time.Hour)},
		}},
		&fakeFavoriteRepo{favorites: []domain.Favorite{
			{UserID: 2, ProductID: 20, CreatedAt: now.Add(-2 * time.Hour)},
		}},
	)

	rc := testRunContext(testConfig())
	processed, err := stage.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("single source failure must not abort the stage: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 distinct users, got %d", processed)
	}

	raw, ok := rc.Output(StageIngestion)
	if !ok {
		t.Fatal("ingestion output not set")
	}
	out := raw.(*IngestionOutput)
	if len(out.SourceErrors) != 1 {
		t.Fatalf("expected 1 source error, got %v", out.SourceErrors)
	}
	if len(out.Purchases) != 0 || len(out.Views) != 1 || len(out.Favorites) != 1 {
		t.Fatalf("unexpected summary counts: %d/%d/%d",
			len(out.Purchases), len(out.Views), len(out.Favorites))
	}
}

func TestIngestionRun_AllSourcesFailing(t *testing.T) {
	down := errors.New("storage down")

	stage := NewIngestionStage(
		&fakeOrderRepo{err: down},
		&fakeBehaviorRepo{err: down},
		&fakeViewRepo{},
		&fakeFavoriteRepo{err: down},
	)

	rc := testRunContext(testConfig())
	if _, err := stage.Run(context.Background(), rc); err == nil {
		t.Fatal("expected fatal error when every source fails")
	}
}

func TestCollectPurchases_AggregatesItems(t *testing.T) {
	now := time.Now()

	stage := NewIngestionStage(
		&fakeOrderRepo{orders: []domain.Order{
			{
				UserID:        1,
				OrderStatus:   domain.OrderStatusDelivered,
				PaymentStatus: domain.PaymentStatusPaid,
				CreatedAt:     now.Add(-24 * time.Hour),
				Items: []domain.OrderItem{
					{ProductID: 10, Quantity: 2, Price: 25, Category: "garden", Brand: "acme"},
					{ProductID: 11, Quantity: 1, Price: 100, Category: "garden", Brand: "zenith"},
				},
			},
			{
				UserID:        1,
				OrderStatus:   domain.OrderStatusCancelled,
				PaymentStatus: domain.PaymentStatusPaid,
				CreatedAt:     now.Add(-12 * time.Hour),
				Items: []domain.OrderItem{
					{ProductID: 12, Quantity: 1, Price: 10},
				},
			},
		}},
		&fakeBehaviorRepo{},
		&fakeViewRepo{},
		&fakeFavoriteRepo{},
	)

	rc := testRunContext(testConfig())
	if _, err := stage.Run(context.Background(), rc); err != nil {
		t.Fatal(err)
	}

	raw, _ := rc.Output(StageIngestion)
	out := raw.(*IngestionOutput)

	sum := out.Purchases[1]
	if sum == nil {
		t.Fatal("missing purchase summary for user 1")
	}
	if sum.OrderCount != 1 {
		t.Fatalf("cancelled order must be excluded, got OrderCount=%d", sum.OrderCount)
	}
	if sum.ItemCount != 3 {
		t.Fatalf("expected ItemCount 3, got %d", sum.ItemCount)
	}
	if sum.TotalSpent != 150 {
		t.Fatalf("expected TotalSpent 150, got %v", sum.TotalSpent)
	}
	if sum.CategoryCounts["garden"] != 2 || sum.BrandCounts["acme"] != 1 {
		t.Fatalf("unexpected preference counts: %v / %v", sum.CategoryCounts, sum.BrandCounts)
	}
}

func TestCollectViews_MergesBehaviorLog(t *testing.T) {
	now := time.Now()

	stage := NewIngestionStage(
		&fakeOrderRepo{},
		&fakeBehaviorRepo{behaviors: []domain.UserBehavior{
			{
				UserID:    1,
				Action:    domain.BehaviorActionViewProduct,
				ProductID: 10,
				Context:   map[string]interface{}{"dwell_seconds": 42.0},
				CreatedAt: now.Add(-3 * time.Hour),
			},
		}},
		&fakeViewRepo{views: []domain.ProductView{
			{UserID: 1, ProductID: 10, DwellSeconds: 7, ViewedAt: now.Add(-30 * time.Minute)},
		}},
		&fakeFavoriteRepo{},
	)

	rc := testRunContext(testConfig())
	if _, err := stage.Run(context.Background(), rc); err != nil {
		t.Fatal(err)
	}

	raw, _ := rc.Output(StageIngestion)
	out := raw.(*IngestionOutput)

	sum := out.Views[1]
	if sum == nil {
		t.Fatal("missing view summary for user 1")
	}
	// 2.5 hours apart, both survive dedup
	if sum.ViewCount != 2 {
		t.Fatalf("expected 2 views, got %d", sum.ViewCount)
	}
	if sum.Events[0].DwellSeconds != 42 {
		t.Fatalf("dwell from behavior context not carried, got %v", sum.Events[0].DwellSeconds)
	}
}
