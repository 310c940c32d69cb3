package mysql

import (
	"context"
	"errors"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CircleFollowRepository struct {
	DB *gorm.DB
}

// Follow 设置关系为关注（幂等）。如果状态从未关注切换为已关注，则返回 changed=true。
func (r *CircleFollowRepository) Follow(ctx context.Context, circleID, userID uint64) (bool, error) {
	var changed bool
	err := conn(ctx, r.DB).Transaction(func(tx *gorm.DB) error {
		var rel model.CircleFollow
		// select for update 避免竞争
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("circle_id=? AND user_id=?", circleID, userID).First(&rel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rel = model.CircleFollow{CircleID: circleID, UserID: userID, Status: 1}
			if err := tx.Create(&rel).Error; err != nil {
				return err
			}
			changed = true
			return nil
		}
		if err != nil {
			return err
		}
		if rel.Status == 1 {
			return nil
		}
		res := tx.Model(&model.CircleFollow{}).Where("id=? AND status=0", rel.ID).Update("status", 1)
		changed = res.RowsAffected > 0
		return res.Error
	})
	return changed, err
}

// Unfollow 没有关注记录或已取关时 changed=false
func (r *CircleFollowRepository) Unfollow(ctx context.Context, circleID, userID uint64) (bool, error) {
	var changed bool
	err := conn(ctx, r.DB).Transaction(func(tx *gorm.DB) error {
		var rel model.CircleFollow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("circle_id=? AND user_id=?", circleID, userID).First(&rel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rel.Status == 0 {
			return nil
		}
		res := tx.Model(&model.CircleFollow{}).Where("id=? AND status=1", rel.ID).Update("status", 0)
		changed = res.RowsAffected > 0
		return res.Error
	})
	return changed, err
}
