// internal/storage/models/token_launch.go
package models

import "time"

// Platform values recorded as launch provenance.
const (
	PlatformPumpBot  = "pumpbot"
	PlatformMoltbook = "moltbook"
)

// DefaultTotalSupply is the PumpFun token supply in whole tokens.
const DefaultTotalSupply = 1_000_000_000

// TokenLaunch is the summary record kept for every launched token.
type TokenLaunch struct {
	Address     string `gorm:"primaryKey;type:varchar(44)" json:"address"`
	Name        string `gorm:"not null;type:varchar(100)" json:"name"`
	Symbol      string `gorm:"not null;type:varchar(20)" json:"symbol"`
	Description string `gorm:"not null;type:text" json:"description"`
	Image       string `gorm:"not null;type:text" json:"image"`
	Website     string `gorm:"type:text" json:"website,omitempty"`
	Twitter     string `gorm:"type:text" json:"twitter,omitempty"`

	AgentName   string `gorm:"type:varchar(100)" json:"agentName,omitempty"`
	AgentWallet string `gorm:"index;type:varchar(44)" json:"agentWallet"`

	// PostID is unique among social launches; nil for launches without a post.
	PostID   *string `gorm:"uniqueIndex;type:varchar(100)" json:"postId,omitempty"`
	PostURL  string  `gorm:"type:text" json:"postUrl,omitempty"`
	Platform string  `gorm:"not null;type:varchar(20);default:pumpbot" json:"platform"`

	BondingCurveAddress string  `gorm:"type:varchar(44)" json:"bondingCurveAddress,omitempty"`
	BondingProgress     float64 `gorm:"type:decimal(5,2);default:0" json:"bondingProgress"`
	Graduated           bool    `gorm:"index;default:false" json:"graduated"`

	MarketCap      float64 `gorm:"index;type:decimal(30,9);default:0" json:"marketCap"`
	CurrentPrice   float64 `gorm:"type:decimal(30,18);default:0" json:"currentPrice"`
	TotalSupply    float64 `gorm:"type:decimal(30,6);default:1000000000" json:"totalSupply"`
	Volume24h      float64 `gorm:"column:volume24h;index;type:decimal(30,9);default:0" json:"volume24h"`
	PriceChange24h float64 `gorm:"column:price_change24h;type:decimal(12,4);default:0" json:"priceChange24h"`

	DeployTxHash    string `gorm:"type:varchar(88)" json:"deployTxHash,omitempty"`
	MigrationTxHash string `gorm:"type:varchar(88)" json:"migrationTxHash,omitempty"`

	CreatedAt   time.Time  `gorm:"index;not null" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	GraduatedAt *time.Time `json:"graduatedAt,omitempty"`
}

// TableName pins the table name independent of gorm's pluralizer.
func (TokenLaunch) TableName() string {
	return "token_launches"
}

// SetBondingProgress clamps p to [0,100]. Reaching 100 graduates the token;
// GraduatedAt is set only the first time.
func (t *TokenLaunch) SetBondingProgress(p float64, now time.Time) {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	t.BondingProgress = p
	if p == 100 {
		t.Graduate(now)
	}
}

// Graduate marks the token as migrated off its bonding curve.
func (t *TokenLaunch) Graduate(now time.Time) {
	t.Graduated = true
	t.BondingProgress = 100
	if t.GraduatedAt == nil {
		at := now.UTC()
		t.GraduatedAt = &at
	}
}

// MarketUpdate carries refreshed on-chain figures for one token.
type MarketUpdate struct {
	CurrentPrice    float64 `json:"currentPrice"`
	MarketCap       float64 `json:"marketCap"`
	BondingProgress float64 `json:"bondingProgress"`
	Complete        bool    `json:"complete"`
}

// ApplyMarket copies u onto t keeping the progress invariants.
func (t *TokenLaunch) ApplyMarket(u MarketUpdate, now time.Time) {
	t.CurrentPrice = u.CurrentPrice
	t.MarketCap = u.MarketCap
	t.SetBondingProgress(u.BondingProgress, now)
	if u.Complete {
		t.Graduate(now)
	}
}

// RecentLaunch is the projection served by the recent launches feed.
type RecentLaunch struct {
	Address         string    `json:"address"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Image           string    `json:"image"`
	AgentName       string    `json:"agentName,omitempty"`
	PostURL         string    `json:"postUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	MarketCap       float64   `json:"marketCap"`
	BondingProgress float64   `json:"bondingProgress"`
}

// Recent projects t onto the feed shape.
func (t *TokenLaunch) Recent() RecentLaunch {
	return RecentLaunch{
		Address:         t.Address,
		Name:            t.Name,
		Symbol:          t.Symbol,
		Image:           t.Image,
		AgentName:       t.AgentName,
		PostURL:         t.PostURL,
		CreatedAt:       t.CreatedAt,
		MarketCap:       t.MarketCap,
		BondingProgress: t.BondingProgress,
	}
}

// Stats aggregates across all records.
type Stats struct {
	TotalLaunches int64   `json:"totalLaunches"`
	TotalVolume   float64 `json:"totalVolume"`
	ActiveAgents  int64   `json:"activeAgents"`
}
