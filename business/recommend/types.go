package recommend

import (
	"time"

	"marketReco/domain"
)

// ---- raw events ----

type PurchaseEvent struct {
	UserID    uint      `json:"user_id"`
	ProductID uint64    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	Brand     string    `json:"brand"`
	CreatedAt time.Time `json:"created_at"`
}

type ViewEvent struct {
	UserID       uint      `json:"user_id"`
	ProductID    uint64    `json:"product_id"`
	DwellSeconds float64   `json:"dwell_seconds"`
	SessionID    string    `json:"session_id"`
	ViewedAt     time.Time `json:"viewed_at"`
}

type FavoriteEvent struct {
	UserID    uint      `json:"user_id"`
	ProductID uint64    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ---- per-user summaries, rebuilt every run ----

type UserPurchaseSummary struct {
	UserID         uint
	OrderCount     int
	ItemCount      int
	TotalSpent     float64
	FirstPurchase  time.Time
	LastPurchase   time.Time
	Events         []PurchaseEvent
	CategoryCounts map[string]int
	BrandCounts    map[string]int
}

type UserViewSummary struct {
	UserID    uint
	ViewCount int
	LastView  time.Time
	Events    []ViewEvent
}

type UserFavoriteSummary struct {
	UserID        uint
	FavoriteCount int
	LastFavorite  time.Time
	Events        []FavoriteEvent
}

// ---- features ----

// CoPurchaseMatrix counts how often two products were purchased by the same
// user. Symmetric: matrix[a][b] == matrix[b][a].
type CoPurchaseMatrix map[uint64]map[uint64]int

func (m CoPurchaseMatrix) increment(a, b uint64) {
	row, ok := m[a]
	if !ok {
		row = make(map[uint64]int)
		m[a] = row
	}
	row[b]++
}

func (m CoPurchaseMatrix) Row(productID uint64) map[uint64]int {
	return m[productID]
}

type ProductFeatures struct {
	ProductID           uint64
	PurchaseFreq        float64
	PurchaseRecencyDays float64
	CoPurchase          map[uint64]int
	AvgViewDwell        float64
	ViewRecencyDays     float64
	Favorited           bool
	Categories          []string
	Brand               string
	PriceBucket         string
	Rating              float64
	ReviewCount         int
}

type UserFeatures struct {
	UserID          uint
	Products        map[uint64]*ProductFeatures
	CategoryPrefs   map[string]float64
	BrandPrefs      map[string]float64
	PricePrefs      map[string]float64
	PurchasesPerDay float64
	ViewsPerDay     float64
	FirstActivity   time.Time
	LastActivity    time.Time
}

// ---- strategy output ----

// RecommendationItem is a raw candidate. Score scale is strategy-specific
// and not comparable across users until the ranker normalizes it.
type RecommendationItem struct {
	ProductID uint64
	Score     float64
	Rationale string
	Strategy  string
}

// ---- ranking ----

type FilterCounts struct {
	Availability  int `json:"availability"`
	Stock         int `json:"stock"`
	BusinessRules int `json:"business_rules"`
}

type RankingResult struct {
	UserID          uint
	Strategy        string
	Items           []domain.RankedRecommendation
	TotalConsidered int
	FilteredOut     int
	FinalCount      int
	Filters         FilterCounts
}

// ---- persistence / notification ----

type PersistResult struct {
	UserID          uint
	RecordID        uint64
	ItemCount       int
	PreviousDeleted int
	Err             string
}

type NotifyResult struct {
	UserID      uint
	EmailSent   bool
	PushSent    bool
	RateLimited bool
	Errors      []string
}

// ---- run reporting ----

type StageStats struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Processed  int    `json:"processed"`
	Error      string `json:"error,omitempty"`
}

type RunResult struct {
	RunID          string       `json:"run_id"`
	Trigger        string       `json:"trigger"`
	Strategy       string       `json:"strategy"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Success        bool         `json:"success"`
	Stages         []StageStats `json:"stages"`
	UsersSucceeded int          `json:"users_succeeded"`
	UsersFailed    int          `json:"users_failed"`
	Errors         []string     `json:"errors"`
}
