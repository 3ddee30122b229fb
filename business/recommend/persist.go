package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketReco/domain"
	"marketReco/pkg/logger"

	"gorm.io/datatypes"
)

// PersistenceStage upserts one RecommendationRecord per (user, strategy):
// delete the prior record, insert the new one. A failure for one user is
// reported and the rest of the batch continues.
type PersistenceStage struct {
	recoRepo RecommendationRepository
}

func NewPersistenceStage(recoRepo RecommendationRepository) *PersistenceStage {
	return &PersistenceStage{recoRepo: recoRepo}
}

func (s *PersistenceStage) Name() string { return StagePersistence }

func (s *PersistenceStage) Run(ctx context.Context, rc *RunContext) (int, error) {
	raw, ok := rc.Output(StageRanking)
	if !ok {
		return 0, errors.New("missing ranking output")
	}
	in, ok := raw.(*RankingOutput)
	if !ok {
		return 0, fmt.Errorf("unexpected ranking output type %T", raw)
	}

	results := make([]PersistResult, 0, len(in.Results))

	for _, ranking := range in.Results {
		pr := s.persistUser(ctx, rc, ranking)
		if pr.Err != "" {
			rc.addError("persist user %d: %s", ranking.UserID, pr.Err)
		} else {
			RecommendationsPersistedTotal.Inc()
		}
		results = append(results, pr)
	}

	rc.SetOutput(StagePersistence, results)

	return len(results), nil
}

func (s *PersistenceStage) persistUser(ctx context.Context, rc *RunContext, ranking RankingResult) PersistResult {
	pr := PersistResult{
		UserID:    ranking.UserID,
		ItemCount: len(ranking.Items),
	}

	existing, err := s.recoRepo.FindByUserAndStrategy(ctx, ranking.UserID, ranking.Strategy)
	if err != nil {
		pr.Err = err.Error()
		return pr
	}

	if existing != nil {
		if err := s.recoRepo.DeleteByID(ctx, existing.ID); err != nil {
			pr.Err = err.Error()
			return pr
		}
		pr.PreviousDeleted = 1
	}

	itemsJSON, err := json.Marshal(ranking.Items)
	if err != nil {
		pr.Err = fmt.Sprintf("marshal items: %v", err)
		return pr
	}

	now := time.Now()
	record := &domain.RecommendationRecord{
		UserID:      ranking.UserID,
		Strategy:    ranking.Strategy,
		ItemsJSON:   itemsJSON,
		Context:     buildRecordContext(rc, ranking),
		GeneratedAt: now,
		ExpiresAt:   now.Add(time.Duration(rc.Config.RecordTTLHours) * time.Hour),
	}

	if err := s.recoRepo.Create(ctx, record); err != nil {
		pr.Err = err.Error()
		return pr
	}

	pr.RecordID = record.ID

	logger.Debug("recommendation record persisted",
		"run_id", rc.RunID,
		"user_id", ranking.UserID,
		"strategy", ranking.Strategy,
		"items", len(ranking.Items),
		"previous_deleted", pr.PreviousDeleted,
	)

	return pr
}

// buildRecordContext echoes the parameterization and filter statistics that
// produced the record, for later debugging of a served list.
func buildRecordContext(rc *RunContext, ranking RankingResult) datatypes.JSONMap {
	return datatypes.JSONMap{
		"run_id":                       rc.RunID,
		"trigger":                      rc.Options.Trigger,
		"top_k":                        rc.Config.TopK,
		"recency_days":                 rc.Config.RecencyDays,
		"exclude_recent_purchase_days": rc.Config.ExcludeRecentPurchaseDays,
		"weight_purchase":              rc.Config.WeightPurchase,
		"weight_view":                  rc.Config.WeightView,
		"weight_favorite":              rc.Config.WeightFavorite,
		"total_considered":             ranking.TotalConsidered,
		"filtered_out":                 ranking.FilteredOut,
		"filter_availability":          ranking.Filters.Availability,
		"filter_stock":                 ranking.Filters.Stock,
		"filter_business_rules":        ranking.Filters.BusinessRules,
	}
}
