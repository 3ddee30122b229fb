package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketReco/domain"
	"marketReco/pkg/logger"
)

// NotificationStage dispatches rate-limited email/push alerts for freshly
// persisted recommendation sets. Channel failures are accumulated per user,
// never raised; a marker row is written after any dispatch attempt so the
// rate limit counts attempts, not deliveries.
type NotificationStage struct {
	notifLogRepo NotificationLogRepository
	userRepo     UserRepository
	emailSender  EmailSender
	pushSender   PushSender
}

func NewNotificationStage(
	notifLogRepo NotificationLogRepository,
	userRepo UserRepository,
	emailSender EmailSender,
	pushSender PushSender,
) *NotificationStage {
	return &NotificationStage{
		notifLogRepo: notifLogRepo,
		userRepo:     userRepo,
		emailSender:  emailSender,
		pushSender:   pushSender,
	}
}

func (s *NotificationStage) Name() string { return StageNotification }

func (s *NotificationStage) Run(ctx context.Context, rc *RunContext) (int, error) {
	if !rc.Config.EnableNotifications {
		rc.SetOutput(StageNotification, []NotifyResult{})
		return 0, nil
	}

	raw, ok := rc.Output(StagePersistence)
	if !ok {
		return 0, errors.New("missing persistence output")
	}
	persisted, ok := raw.([]PersistResult)
	if !ok {
		return 0, fmt.Errorf("unexpected persistence output type %T", raw)
	}

	var eligible []PersistResult
	for _, pr := range persisted {
		if pr.Err == "" && pr.ItemCount > 0 {
			eligible = append(eligible, pr)
		}
	}

	users, err := s.resolveUsers(ctx, eligible)
	if err != nil {
		return 0, err
	}

	results := make([]NotifyResult, 0, len(eligible))
	for _, pr := range eligible {
		nr := s.notifyUser(ctx, rc, pr, users[pr.UserID])
		for _, e := range nr.Errors {
			rc.addError("notify user %d: %s", pr.UserID, e)
		}
		results = append(results, nr)
	}

	rc.SetOutput(StageNotification, results)

	return len(results), nil
}

func (s *NotificationStage) resolveUsers(ctx context.Context, eligible []PersistResult) (map[uint]domain.User, error) {
	ids := make([]uint, 0, len(eligible))
	for _, pr := range eligible {
		ids = append(ids, pr.UserID)
	}

	rows, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve notification recipients: %w", err)
	}

	users := make(map[uint]domain.User, len(rows))
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

func (s *NotificationStage) notifyUser(ctx context.Context, rc *RunContext, pr PersistResult, user domain.User) NotifyResult {
	nr := NotifyResult{UserID: pr.UserID}

	limited, err := s.isRateLimited(ctx, rc, pr.UserID)
	if err != nil {
		nr.Errors = append(nr.Errors, fmt.Sprintf("rate limit check: %v", err))
		return nr
	}
	if limited {
		nr.RateLimited = true
		NotificationsTotal.WithLabelValues("all", "rate_limited").Inc()
		logger.Debug("notification rate limited",
			"run_id", rc.RunID, "user_id", pr.UserID)
		return nr
	}

	attempted := false

	if rc.Config.EnableEmailNotifications && user.Email != "" {
		attempted = true
		subject := "New picks for you"
		html := fmt.Sprintf(
			"<p>Hi %s,</p><p>We picked %d products we think you will like. Come have a look!</p>",
			user.FullName, pr.ItemCount,
		)
		if err := s.emailSender.SendEmail(user.FullName, user.Email, subject, html); err != nil {
			nr.Errors = append(nr.Errors, fmt.Sprintf("email: %v", err))
			NotificationsTotal.WithLabelValues("email", "failure").Inc()
		} else {
			nr.EmailSent = true
			NotificationsTotal.WithLabelValues("email", "success").Inc()
		}
	}

	if rc.Config.EnablePushNotifications {
		attempted = true
		ok, err := s.pushSender.SendPush(pr.UserID, "New picks for you",
			fmt.Sprintf("%d fresh recommendations are waiting", pr.ItemCount),
			map[string]any{
				"type":     domain.NotificationTypeRecommendation,
				"strategy": rc.Config.Strategy,
				"count":    pr.ItemCount,
			})
		if err != nil || !ok {
			if err == nil {
				err = errors.New("provider rejected push")
			}
			nr.Errors = append(nr.Errors, fmt.Sprintf("push: %v", err))
			NotificationsTotal.WithLabelValues("push", "failure").Inc()
		} else {
			nr.PushSent = true
			NotificationsTotal.WithLabelValues("push", "success").Inc()
		}
	}

	if attempted {
		marker := &domain.NotificationLog{
			UserID:    pr.UserID,
			NotifType: domain.NotificationTypeRecommendation,
			EmailSent: nr.EmailSent,
			PushSent:  nr.PushSent,
		}
		if err := s.notifLogRepo.Create(ctx, marker); err != nil {
			nr.Errors = append(nr.Errors, fmt.Sprintf("marker: %v", err))
		}
	}

	return nr
}

func (s *NotificationStage) isRateLimited(ctx context.Context, rc *RunContext, userID uint) (bool, error) {
	since := time.Now().Add(-time.Duration(rc.Config.NotificationCooldownHours) * time.Hour)
	count, err := s.notifLogRepo.CountSince(ctx, userID, domain.NotificationTypeRecommendation, since)
	if err != nil {
		return false, err
	}
	return count >= rc.Config.MaxNotificationsPerUser, nil
}
