package recommend

import (
	"context"
	"time"

	"marketReco/domain"
	"marketReco/pkg/config"
)

// shared in-memory fakes for the stage tests

type fakeOrderRepo struct {
	orders []domain.Order
	err    error
}

func (f *fakeOrderRepo) FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.Order, error) {
	return f.orders, f.err
}

type fakeBehaviorRepo struct {
	behaviors []domain.UserBehavior
	err       error
}

func (f *fakeBehaviorRepo) FindViewsInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.UserBehavior, error) {
	return f.behaviors, f.err
}

type fakeViewRepo struct {
	views []domain.ProductView
	err   error
}

func (f *fakeViewRepo) FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.ProductView, error) {
	return f.views, f.err
}

type fakeFavoriteRepo struct {
	favorites []domain.Favorite
	err       error
}

func (f *fakeFavoriteRepo) FindInWindow(ctx context.Context, userIDs []uint, start, end time.Time) ([]domain.Favorite, error) {
	return f.favorites, f.err
}

type fakeCatalog struct {
	products map[uint64]domain.Product
	inStock  []domain.Product
	err      error
}

func (f *fakeCatalog) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FindInStock(ctx context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.inStock, nil
}

type fakeRecoRepo struct {
	existing map[uint]*domain.RecommendationRecord
	created  []*domain.RecommendationRecord
	deleted  []uint64
	nextID   uint64

	findErr   error
	deleteErr error
	createErr error
	failUser  uint
}

func (f *fakeRecoRepo) FindByUserAndStrategy(ctx context.Context, userID uint, strategy string) (*domain.RecommendationRecord, error) {
	if f.findErr != nil && userID == f.failUser {
		return nil, f.findErr
	}
	return f.existing[userID], nil
}

func (f *fakeRecoRepo) DeleteByID(ctx context.Context, id uint64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRecoRepo) Create(ctx context.Context, record *domain.RecommendationRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	record.ID = f.nextID
	f.created = append(f.created, record)
	return nil
}

type fakeNotifLogRepo struct {
	count    int
	countErr error
	logs     []*domain.NotificationLog
	logErr   error
}

func (f *fakeNotifLogRepo) CountSince(ctx context.Context, userID uint, notifType string, since time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeNotifLogRepo) Create(ctx context.Context, log *domain.NotificationLog) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, log)
	return nil
}

type fakeUserRepo struct {
	users []domain.User
	err   error
}

func (f *fakeUserRepo) FindByIDs(ctx context.Context, ids []uint) ([]domain.User, error) {
	return f.users, f.err
}

type fakeEmailSender struct {
	sent []string
	err  error
}

func (f *fakeEmailSender) SendEmail(toName, toEmail, subject, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

type fakePushSender struct {
	sent []uint
	ok   bool
	err  error
}

func (f *fakePushSender) SendPush(userID uint, title, body string, data map[string]any) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.ok {
		f.sent = append(f.sent, userID)
	}
	return f.ok, nil
}

func testConfig() config.RecoConfig {
	return config.RecoConfig{
		TopK:                      10,
		RecencyDays:               90,
		Strategy:                  config.StrategyHybrid,
		WeightPurchase:            0.5,
		WeightView:                0.3,
		WeightFavorite:            0.2,
		ExcludeRecentPurchaseDays: 14,
		CacheTTLSeconds:           600,
		RecordTTLHours:            168,
		MaxNotificationsPerUser:   1,
		NotificationCooldownHours: 24,
		EnableNotifications:       true,
		EnableEmailNotifications:  true,
		EnablePushNotifications:   true,
		CronDaily:                 "0 4 * * *",
		CronWeekly:                "0 5 * * 1",
	}
}

func testRunContext(cfg config.RecoConfig) *RunContext {
	return newRunContext("test-run", cfg, RunOptions{Trigger: TriggerManual})
}
