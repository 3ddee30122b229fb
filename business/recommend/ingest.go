package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"marketReco/domain"
	"marketReco/pkg/logger"
)

// Minimum gap between two retained views of the same (user, product). Caps
// refresh/bot inflation without losing genuine return visits.
const viewDedupWindow = time.Hour

// IngestionOutput is keyed into the run context under StageIngestion.
type IngestionOutput struct {
	Purchases map[uint]*UserPurchaseSummary
	Views     map[uint]*UserViewSummary
	Favorites map[uint]*UserFavoriteSummary

	Window       [2]time.Time
	SourceErrors []string
}

// IngestionStage reads the three event sources and produces per-user
// summaries. A single failing source degrades to an empty summary set; the
// stage only fails when every source fails.
type IngestionStage struct {
	orderRepo    OrderEventRepository
	behaviorRepo BehaviorEventRepository
	viewRepo     ProductViewEventRepository
	favoriteRepo FavoriteEventRepository
}

func NewIngestionStage(
	orderRepo OrderEventRepository,
	behaviorRepo BehaviorEventRepository,
	viewRepo ProductViewEventRepository,
	favoriteRepo FavoriteEventRepository,
) *IngestionStage {
	return &IngestionStage{
		orderRepo:    orderRepo,
		behaviorRepo: behaviorRepo,
		viewRepo:     viewRepo,
		favoriteRepo: favoriteRepo,
	}
}

func (s *IngestionStage) Name() string { return StageIngestion }

func (s *IngestionStage) Run(ctx context.Context, rc *RunContext) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	start, end := resolveWindow(rc)

	out := &IngestionOutput{
		Purchases: make(map[uint]*UserPurchaseSummary),
		Views:     make(map[uint]*UserViewSummary),
		Favorites: make(map[uint]*UserFavoriteSummary),
		Window:    [2]time.Time{start, end},
	}

	failed := 0

	if err := s.collectPurchases(ctx, rc, start, end, out); err != nil {
		failed++
		out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("orders: %v", err))
		rc.addError("ingestion source orders failed: %v", err)
		logger.Warn("orders ingestion failed, continuing without purchase signal",
			"run_id", rc.RunID, "error", err)
	}
	if err := s.collectViews(ctx, rc, start, end, out); err != nil {
		failed++
		out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("views: %v", err))
		rc.addError("ingestion source views failed: %v", err)
		logger.Warn("views ingestion failed, continuing without view signal",
			"run_id", rc.RunID, "error", err)
	}
	if err := s.collectFavorites(ctx, rc, start, end, out); err != nil {
		failed++
		out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("favorites: %v", err))
		rc.addError("ingestion source favorites failed: %v", err)
		logger.Warn("favorites ingestion failed, continuing without favorite signal",
			"run_id", rc.RunID, "error", err)
	}

	if failed == 3 {
		return 0, errors.New("all ingestion sources failed")
	}

	rc.SetOutput(StageIngestion, out)

	users := make(map[uint]struct{})
	for uid := range out.Purchases {
		users[uid] = struct{}{}
	}
	for uid := range out.Views {
		users[uid] = struct{}{}
	}
	for uid := range out.Favorites {
		users[uid] = struct{}{}
	}

	return len(users), nil
}

func resolveWindow(rc *RunContext) (time.Time, time.Time) {
	now := time.Now()

	end := now
	if rc.Options.EndDate != nil {
		end = *rc.Options.EndDate
	}

	start := end.AddDate(0, 0, -rc.Config.RecencyDays)
	if rc.Options.StartDate != nil {
		start = *rc.Options.StartDate
	}

	return start, end
}

// orderCountsAsPurchase keeps only orders that represent real demand:
// fulfilled-enough status and money actually moved.
func orderCountsAsPurchase(o domain.Order) bool {
	switch o.OrderStatus {
	case domain.OrderStatusConfirmed, domain.OrderStatusProcessing,
		domain.OrderStatusShipped, domain.OrderStatusDelivered:
	default:
		return false
	}

	switch o.PaymentStatus {
	case domain.PaymentStatusPaid, domain.PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

func (s *IngestionStage) collectPurchases(ctx context.Context, rc *RunContext, start, end time.Time, out *IngestionOutput) error {
	orders, err := s.orderRepo.FindInWindow(ctx, rc.Options.UserIDs, start, end)
	if err != nil {
		return err
	}

	for _, o := range orders {
		if !orderCountsAsPurchase(o) {
			continue
		}

		sum, ok := out.Purchases[o.UserID]
		if !ok {
			sum = &UserPurchaseSummary{
				UserID:         o.UserID,
				CategoryCounts: make(map[string]int),
				BrandCounts:    make(map[string]int),
				FirstPurchase:  o.CreatedAt,
			}
			out.Purchases[o.UserID] = sum
		}

		sum.OrderCount++
		if o.CreatedAt.After(sum.LastPurchase) {
			sum.LastPurchase = o.CreatedAt
		}
		if o.CreatedAt.Before(sum.FirstPurchase) {
			sum.FirstPurchase = o.CreatedAt
		}

		for _, item := range o.Items {
			sum.ItemCount += item.Quantity
			sum.TotalSpent += item.Price * float64(item.Quantity)
			if item.Category != "" {
				sum.CategoryCounts[item.Category]++
			}
			if item.Brand != "" {
				sum.BrandCounts[item.Brand]++
			}

			sum.Events = append(sum.Events, PurchaseEvent{
				UserID:    o.UserID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
				Category:  item.Category,
				Brand:     item.Brand,
				CreatedAt: o.CreatedAt,
			})
		}
	}

	return nil
}

// collectViews merges the generic behavior log with the dedicated
// product-view log, then de-duplicates per (user, product).
func (s *IngestionStage) collectViews(ctx context.Context, rc *RunContext, start, end time.Time, out *IngestionOutput) error {
	behaviors, err := s.behaviorRepo.FindViewsInWindow(ctx, rc.Options.UserIDs, start, end)
	if err != nil {
		return err
	}

	views, err := s.viewRepo.FindInWindow(ctx, rc.Options.UserIDs, start, end)
	if err != nil {
		return err
	}

	merged := make([]ViewEvent, 0, len(behaviors)+len(views))

	for _, b := range behaviors {
		if b.ProductID == 0 {
			continue
		}
		ev := ViewEvent{
			UserID:    b.UserID,
			ProductID: b.ProductID,
			SessionID: b.SessionID,
			ViewedAt:  b.CreatedAt,
		}
		if dwell, ok := b.Context["dwell_seconds"].(float64); ok {
			ev.DwellSeconds = dwell
		}
		merged = append(merged, ev)
	}

	for _, v := range views {
		merged = append(merged, ViewEvent{
			UserID:       v.UserID,
			ProductID:    v.ProductID,
			DwellSeconds: v.DwellSeconds,
			SessionID:    v.SessionID,
			ViewedAt:     v.ViewedAt,
		})
	}

	for _, ev := range dedupViews(merged) {
		sum, ok := out.Views[ev.UserID]
		if !ok {
			sum = &UserViewSummary{UserID: ev.UserID}
			out.Views[ev.UserID] = sum
		}
		sum.ViewCount++
		if ev.ViewedAt.After(sum.LastView) {
			sum.LastView = ev.ViewedAt
		}
		sum.Events = append(sum.Events, ev)
	}

	return nil
}

// dedupViews drops a view unless it happened more than viewDedupWindow after
// the previously retained view for the same (user, product).
func dedupViews(events []ViewEvent) []ViewEvent {
	sort.Slice(events, func(i, j int) bool {
		return events[i].ViewedAt.Before(events[j].ViewedAt)
	})

	type pairKey struct {
		userID    uint
		productID uint64
	}

	lastRetained := make(map[pairKey]time.Time)
	retained := make([]ViewEvent, 0, len(events))

	for _, ev := range events {
		key := pairKey{ev.UserID, ev.ProductID}
		if prev, ok := lastRetained[key]; ok {
			if ev.ViewedAt.Sub(prev) <= viewDedupWindow {
				continue
			}
		}
		lastRetained[key] = ev.ViewedAt
		retained = append(retained, ev)
	}

	return retained
}

func (s *IngestionStage) collectFavorites(ctx context.Context, rc *RunContext, start, end time.Time, out *IngestionOutput) error {
	favorites, err := s.favoriteRepo.FindInWindow(ctx, rc.Options.UserIDs, start, end)
	if err != nil {
		return err
	}

	for _, f := range favorites {
		sum, ok := out.Favorites[f.UserID]
		if !ok {
			sum = &UserFavoriteSummary{UserID: f.UserID}
			out.Favorites[f.UserID] = sum
		}
		sum.FavoriteCount++
		if f.CreatedAt.After(sum.LastFavorite) {
			sum.LastFavorite = f.CreatedAt
		}
		sum.Events = append(sum.Events, FavoriteEvent{
			UserID:    f.UserID,
			ProductID: f.ProductID,
			CreatedAt: f.CreatedAt,
		})
	}

	return nil
}
