package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ====================================
// Database Tables
// ====================================

// Reference figures of a coin as published by a provider.
// One row per provider update; several projections can point at it.
type RewardBaseline struct {
	ID               uint64          `gorm:"primaryKey"`
	ProviderID       uint64          `gorm:"index:idx_baseline_update,unique"`
	CoinID           uint64          // The shared coin record, 0 when the symbol is unknown
	Symbol           string          `gorm:"index:idx_baseline_update,unique"`
	LastUpdated      time.Time       `gorm:"index:idx_baseline_update,unique"` // The provider's own update time
	NextRefresh      time.Time       // When the cached copy went stale
	BaseHashrate     decimal.Decimal `gorm:"type:numeric"` // H/s the reward is quoted for
	BaseRewardPerDay decimal.Decimal `gorm:"type:numeric"`
}

// Estimated rewards of a miner at a point in time.
type RewardProjection struct {
	ID               uint64 `gorm:"primaryKey"`
	BaselineID       uint64
	Instant          time.Time // The date/time of the projection
	Miner            string    // The configured miner name, may be empty
	Symbol           string
	ReportedHashrate decimal.Decimal `gorm:"type:numeric"` // H/s
	RewardPerHour    decimal.Decimal `gorm:"type:numeric"`
	RewardPerDay     decimal.Decimal `gorm:"type:numeric"`
	RewardPerWeek    decimal.Decimal `gorm:"type:numeric"`
	RewardPerMonth   decimal.Decimal `gorm:"type:numeric"`
	RewardPerYear    decimal.Decimal `gorm:"type:numeric"`
}
