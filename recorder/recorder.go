// Package recorder stores projections and the baselines they were computed
// from, creating schema as necessary. Rows are history only; nothing is read
// back into the baseline cache.
package recorder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GregoryUnderscore/Mining-Automation-Shared/database"
	shared "github.com/GregoryUnderscore/Mining-Automation-Shared/models"
	"gorm.io/gorm"

	"CoinRewardData/config"
	"CoinRewardData/models"
	"CoinRewardData/reward"
)

// providerSites holds the provider rows created on first use.
var providerSites = map[reward.ProviderType]shared.Provider{
	reward.WhatToMine: {Name: "WhatToMine", Website: "https://whattomine.com/"},
}

type Recorder struct {
	db       *gorm.DB
	provider shared.Provider
}

// Open connects to the configured database and verifies the schema.
func Open(cfg *config.Config, providerType reward.ProviderType) (*Recorder, error) {
	db := database.Connect(cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.TimeZone)
	database.VerifyAndUpdateSchema(db)
	return New(db, providerType)
}

// New migrates the recorder tables on db and makes sure the provider record
// exists.
func New(db *gorm.DB, providerType reward.ProviderType) (*Recorder, error) {
	if err := db.AutoMigrate(&models.RewardBaseline{}, &models.RewardProjection{}); err != nil {
		return nil, fmt.Errorf("migrate reward tables: %w", err)
	}

	// Check if the provider record exists, and if not create it.
	provider := providerRecord(providerType)
	result := db.Where("name = ?", provider.Name).Limit(1).Find(&provider)
	if result.Error != nil {
		return nil, fmt.Errorf("unknown issue storing provider: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := db.Create(&provider).Error; err != nil {
			return nil, fmt.Errorf("issue creating provider: %w", err)
		}
	}
	return &Recorder{db: db, provider: provider}, nil
}

func providerRecord(t reward.ProviderType) shared.Provider {
	if p, ok := providerSites[t]; ok {
		return p
	}
	return shared.Provider{Name: string(t)}
}

// Entry is one projection to store.
type Entry struct {
	Miner      string
	Baseline   reward.Baseline
	Projection reward.Projection
	Instant    time.Time
}

// Record stores entries in a single transaction.
func (r *Recorder) Record(entries []Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			baselineID, err := r.storeBaseline(tx, e.Baseline)
			if err != nil {
				return err
			}
			row := projectionRow(baselineID, e)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("issue creating projection for %s: %w", e.Projection.Coin, err)
			}
		}
		return nil
	})
}

// storeBaseline returns the id of the baseline row, creating it the first
// time this provider update is seen.
func (r *Recorder) storeBaseline(tx *gorm.DB, b reward.Baseline) (uint64, error) {
	var row models.RewardBaseline
	result := tx.Where("provider_id = ? AND symbol = ? AND last_updated = ?", r.provider.ID, string(b.Coin), b.LastUpdated).
		Limit(1).Find(&row)
	if result.Error != nil {
		return 0, fmt.Errorf("unknown issue storing baseline %s: %w", b.Coin, result.Error)
	}
	if result.RowsAffected > 0 {
		return row.ID, nil
	}

	row = baselineRow(r.provider.ID, b)
	var coin shared.Coin
	err := tx.Where("LOWER(symbol) = ?", strings.ToLower(string(b.Coin))).First(&coin).Error
	switch {
	case err == nil:
		row.CoinID = coin.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return 0, fmt.Errorf("unknown issue locating coin %s: %w", b.Coin, err)
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("issue creating baseline %s: %w", b.Coin, err)
	}
	return row.ID, nil
}

func baselineRow(providerID uint64, b reward.Baseline) models.RewardBaseline {
	return models.RewardBaseline{
		ProviderID:       providerID,
		Symbol:           string(b.Coin),
		LastUpdated:      b.LastUpdated,
		NextRefresh:      b.NextRefreshAt,
		BaseHashrate:     b.BaseHashrate,
		BaseRewardPerDay: b.BaseRewardPerDay,
	}
}

func projectionRow(baselineID uint64, e Entry) models.RewardProjection {
	p := e.Projection
	return models.RewardProjection{
		BaselineID:       baselineID,
		Instant:          e.Instant,
		Miner:            e.Miner,
		Symbol:           string(p.Coin),
		ReportedHashrate: p.ReportedHashrate,
		RewardPerHour:    p.RewardPerHour,
		RewardPerDay:     p.RewardPerDay,
		RewardPerWeek:    p.RewardPerWeek,
		RewardPerMonth:   p.RewardPerMonth,
		RewardPerYear:    p.RewardPerYear,
	}
}
