package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketReco/domain"
)

func rankingOutputFor(results ...RankingResult) *RankingOutput {
	return &RankingOutput{Results: results}
}

func TestPersistenceStage_ReplacesExistingRecord(t *testing.T) {
	repo := &fakeRecoRepo{
		existing: map[uint]*domain.RecommendationRecord{
			1: {ID: 77, UserID: 1, Strategy: "hybrid"},
		},
	}

	stage := NewPersistenceStage(repo)
	rc := testRunContext(testConfig())
	rc.SetOutput(StageRanking, rankingOutputFor(RankingResult{
		UserID:   1,
		Strategy: "hybrid",
		Items: []domain.RankedRecommendation{
			{ProductID: 10, Score: 1.0},
		},
	}))

	processed, err := stage.Run(context.Background(), rc)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 processed, got %d", processed)
	}

	raw, _ := rc.Output(StagePersistence)
	results := raw.([]PersistResult)

	if results[0].PreviousDeleted != 1 {
		t.Fatalf("expected previous record deleted, got %+v", results[0])
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 77 {
		t.Fatalf("expected delete of record 77, got %v", repo.deleted)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created record, got %d", len(repo.created))
	}

	record := repo.created[0]
	if record.UserID != 1 || record.Strategy != "hybrid" {
		t.Fatalf("unexpected record identity: %+v", record)
	}

	wantExpiry := record.GeneratedAt.Add(168 * time.Hour)
	if !record.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, record.ExpiresAt)
	}

	var items []domain.RankedRecommendation
	if err := json.Unmarshal(record.ItemsJSON, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ProductID != 10 {
		t.Fatalf("unexpected persisted items: %+v", items)
	}

	if record.Context["run_id"] != "test-run" {
		t.Fatalf("record context must carry the run id, got %v", record.Context["run_id"])
	}
}

func TestPersistenceStage_FirstRunCreatesWithoutDelete(t *testing.T) {
	repo := &fakeRecoRepo{}

	stage := NewPersistenceStage(repo)
	rc := testRunContext(testConfig())
	rc.SetOutput(StageRanking, rankingOutputFor(RankingResult{
		UserID:   5,
		Strategy: "hybrid",
	}))

	if _, err := stage.Run(context.Background(), rc); err != nil {
		t.Fatal(err)
	}

	raw, _ := rc.Output(StagePersistence)
	results := raw.([]PersistResult)

	if results[0].PreviousDeleted != 0 {
		t.Fatalf("nothing to delete on first run, got %+v", results[0])
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("unexpected deletes: %v", repo.deleted)
	}
	if results[0].RecordID == 0 {
		t.Fatal("record id must be reported back")
	}
}

func TestPersistenceStage_UserFailureDoesNotAbortBatch(t *testing.T) {
	repo := &fakeRecoRepo{
		findErr:  errors.New("row lock timeout"),
		failUser: 1,
	}

	stage := NewPersistenceStage(repo)
	rc := testRunContext(testConfig())
	rc.SetOutput(StageRanking, rankingOutputFor(
		RankingResult{UserID: 1, Strategy: "hybrid"},
		RankingResult{UserID: 2, Strategy: "hybrid"},
	))

	if _, err := stage.Run(context.Background(), rc); err != nil {
		t.Fatalf("per-user failure must not fail the stage: %v", err)
	}

	raw, _ := rc.Output(StagePersistence)
	results := raw.([]PersistResult)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err == "" {
		t.Fatal("user 1 must carry the repository error")
	}
	if results[1].Err != "" {
		t.Fatalf("user 2 must succeed, got %q", results[1].Err)
	}
	if len(rc.Result.Errors) != 1 {
		t.Fatalf("expected 1 pipeline error, got %v", rc.Result.Errors)
	}
}
