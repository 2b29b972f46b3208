// Package catalog holds the static reference data: shops, trails, rewards and achievements.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed catalog.yaml
var embedded []byte

type Catalog struct {
	Shops        []models.Shop        `yaml:"shops"`
	Trails       []models.Trail       `yaml:"trails"`
	Rewards      []models.Reward      `yaml:"rewards"`
	Achievements []models.Achievement `yaml:"achievements"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range c.Shops {
		c.Shops[i].IsActive = true
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are unique and every cross reference resolves.
func (c *Catalog) Validate() error {
	var errs []error

	shops := make(map[string]bool, len(c.Shops))
	for _, s := range c.Shops {
		if s.ID == "" || shops[s.ID] {
			errs = append(errs, fmt.Errorf("shop %q: missing or duplicate id", s.ID))
		}
		shops[s.ID] = true
	}

	rewards := make(map[string]models.Reward, len(c.Rewards))
	for _, r := range c.Rewards {
		if _, dup := rewards[r.ID]; r.ID == "" || dup {
			errs = append(errs, fmt.Errorf("reward %q: missing or duplicate id", r.ID))
		}
		rewards[r.ID] = r
		if r.Total < 0 {
			errs = append(errs, fmt.Errorf("reward %q: negative total", r.ID))
		}
		if r.ShopID != "" && !shops[r.ShopID] {
			errs = append(errs, fmt.Errorf("reward %q: unknown shop %q", r.ID, r.ShopID))
		}
		if r.Kind == domain.KindPartner && r.Code == "" {
			errs = append(errs, fmt.Errorf("reward %q: partner reward without code", r.ID))
		}
		if (r.Metric == domain.MetricShopCheckins || r.Metric == domain.MetricPOSTransactions) && r.ShopID == "" {
			errs = append(errs, fmt.Errorf("reward %q: metric %s needs a shop", r.ID, r.Metric))
		}
	}

	trails := make(map[string]bool, len(c.Trails))
	for _, t := range c.Trails {
		if t.ID == "" || trails[t.ID] {
			errs = append(errs, fmt.Errorf("trail %q: missing or duplicate id", t.ID))
		}
		trails[t.ID] = true

		seen := make(map[string]bool, len(t.ShopIDs))
		for _, id := range t.ShopIDs {
			if seen[id] {
				errs = append(errs, fmt.Errorf("trail %q: shop %q listed twice", t.ID, id))
			}
			seen[id] = true
			if !shops[id] {
				errs = append(errs, fmt.Errorf("trail %q: unknown shop %q", t.ID, id))
			}
		}
		for _, id := range t.RewardIDs {
			if _, ok := rewards[id]; !ok {
				errs = append(errs, fmt.Errorf("trail %q: unknown reward %q", t.ID, id))
			}
		}
	}

	for _, r := range c.Rewards {
		if r.TrailID != "" && !trails[r.TrailID] {
			errs = append(errs, fmt.Errorf("reward %q: unknown trail %q", r.ID, r.TrailID))
		}
	}

	achievements := make(map[string]bool, len(c.Achievements))
	for _, a := range c.Achievements {
		if a.ID == "" || achievements[a.ID] {
			errs = append(errs, fmt.Errorf("achievement %q: missing or duplicate id", a.ID))
		}
		achievements[a.ID] = true
	}

	return errors.Join(errs...)
}

// Seed upserts the catalog. Running it twice leaves the same rows.
func (c *Catalog) Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// A fresh chain per Create; a reused statement keeps the previous model's schema.
		upsert := func() *gorm.DB { return tx.Clauses(clause.OnConflict{UpdateAll: true}) }
		if len(c.Shops) > 0 {
			if err := upsert().Create(&c.Shops).Error; err != nil {
				return fmt.Errorf("seed shops: %w", err)
			}
		}
		if len(c.Rewards) > 0 {
			if err := upsert().Create(&c.Rewards).Error; err != nil {
				return fmt.Errorf("seed rewards: %w", err)
			}
		}
		if len(c.Trails) > 0 {
			if err := upsert().Create(&c.Trails).Error; err != nil {
				return fmt.Errorf("seed trails: %w", err)
			}
		}
		if len(c.Achievements) > 0 {
			if err := upsert().Create(&c.Achievements).Error; err != nil {
				return fmt.Errorf("seed achievements: %w", err)
			}
		}
		return nil
	})
}
