package service

import (
	"context"
	"time"

	"github.com/jackc/pgtype"
	"github.com/patrickmn/go-cache"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsCacheKey = "settings"

type SettingsUpdate struct {
	PlatformFeeBps  *uint16                `json:"platform_fee_bps" binding:"omitempty,bps"`
	RewardRateBps   *uint16                `json:"reward_rate_bps" binding:"omitempty,bps"`
	ArbiterID       *string                `json:"arbiter_id"`
	MaintenanceMode *bool                  `json:"maintenance_mode"`
	Extra           map[string]interface{} `json:"extra"`
}

// Singleton rows, created on first read
type Settings struct {
	base
	cache *cache.Cache
}

func NewSettings(config *config.Config, db *gorm.DB) (self *Settings) {
	self = new(Settings)
	self.base = newBase(config, db, nil, "settings")
	self.cache = cache.New(time.Minute, 5*time.Minute)
	return
}

func (self *Settings) Get(ctx context.Context) (out *model.SystemSettings, err error) {
	defer self.wrap(&err)

	if cached, ok := self.cache.Get(settingsCacheKey); ok {
		copied := *cached.(*model.SystemSettings)
		return &copied, nil
	}

	out, err = self.load(ctx, self.db)
	if err != nil {
		return
	}

	self.cache.SetDefault(settingsCacheKey, out)
	copied := *out
	return &copied, nil
}

func (self *Settings) load(ctx context.Context, db *gorm.DB) (out *model.SystemSettings, err error) {
	out = &model.SystemSettings{
		ID:             model.SingletonId,
		PlatformFeeBps: self.config.Fees.PlatformFeeBps,
		RewardRateBps:  self.config.Fees.RewardRateBps,
		Extra:          pgtype.JSONB{Bytes: []byte("{}"), Status: pgtype.Present},
	}

	// Concurrent first reads insert once
	err = db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(out).Error
	if err != nil {
		return
	}

	err = db.WithContext(ctx).Where("id = ?", model.SingletonId).First(out).Error
	return
}

func (self *Settings) Update(ctx context.Context, in *SettingsUpdate) (out *model.SystemSettings, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = self.load(ctx, tx)
		if err != nil {
			return
		}

		if in.PlatformFeeBps != nil {
			out.PlatformFeeBps = *in.PlatformFeeBps
		}
		if in.RewardRateBps != nil {
			out.RewardRateBps = *in.RewardRateBps
		}
		if in.ArbiterID != nil {
			if *in.ArbiterID == "" {
				out.ArbiterID = nil
			} else {
				err = exists[model.User](ctx, tx, "user", *in.ArbiterID)
				if err != nil {
					return
				}
				out.ArbiterID = in.ArbiterID
			}
		}
		if in.MaintenanceMode != nil {
			out.MaintenanceMode = *in.MaintenanceMode
		}
		if in.Extra != nil {
			out.Extra, err = jsonb(in.Extra)
			if err != nil {
				return
			}
		}

		return tx.Save(out).Error
	})
	if err != nil {
		return nil, err
	}

	self.cache.Delete(settingsCacheKey)
	return
}

// Arbiter of new escrows, the first admin when none is configured
func (self *Settings) Arbiter(ctx context.Context) (userId string, err error) {
	settings, err := self.Get(ctx)
	if err != nil {
		return
	}
	if settings.ArbiterID != nil {
		return *settings.ArbiterID, nil
	}

	defer self.wrap(&err)

	var admin model.User
	err = self.db.WithContext(ctx).
		Where("role = ?", model.UserRoleAdmin).
		Order("created_at ASC").
		First(&admin).
		Error
	if err != nil {
		if model.IsNotFound(err) {
			return "", apperr.BadRequest("ARBITER_NOT_SET", "No arbiter configured")
		}
		return
	}
	return admin.ID, nil
}

func (self *Settings) GetState(ctx context.Context) (out *model.SystemState, err error) {
	defer self.wrap(&err)
	return self.loadState(ctx, self.db)
}

func (self *Settings) loadState(ctx context.Context, db *gorm.DB) (out *model.SystemState, err error) {
	out = &model.SystemState{ID: model.SingletonId}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(out).Error
	if err != nil {
		return
	}
	err = db.WithContext(ctx).Where("id = ?", model.SingletonId).First(out).Error
	return
}

func (self *Settings) RecordExpiryRun(ctx context.Context, at time.Time) (err error) {
	defer self.wrap(&err)

	_, err = self.loadState(ctx, self.db)
	if err != nil {
		return
	}
	return self.db.WithContext(ctx).
		Model(&model.SystemState{}).
		Where("id = ?", model.SingletonId).
		Update("last_expiry_run_at", at.UTC()).
		Error
}

func (self *Settings) RecordReconcile(ctx context.Context, at time.Time, divergences int64) (err error) {
	defer self.wrap(&err)

	_, err = self.loadState(ctx, self.db)
	if err != nil {
		return
	}
	return self.db.WithContext(ctx).
		Model(&model.SystemState{}).
		Where("id = ?", model.SingletonId).
		Updates(map[string]interface{}{
			"last_reconcile_at": at.UTC(),
			"divergences_found": gorm.Expr("divergences_found + ?", divergences),
		}).
		Error
}
