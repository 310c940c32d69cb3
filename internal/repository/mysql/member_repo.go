package mysql

import (
	"context"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CircleMemberRepository struct {
	DB *gorm.DB
}

// AddMembership 幂等插入：若已存在 (circle_id, user_id) 则不写，原角色保留
func (r *CircleMemberRepository) AddMembership(ctx context.Context, m *model.CircleMember) (bool, error) {
	tx := conn(ctx, r.DB).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "circle_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(m)
	return tx.RowsAffected > 0, tx.Error
}

func (r *CircleMemberRepository) FindMembership(ctx context.Context, circleID, userID uint64) (*model.CircleMember, error) {
	var m model.CircleMember
	err := conn(ctx, r.DB).Where("circle_id = ? AND user_id = ?", circleID, userID).First(&m).Error
	return notFound(&m, err)
}

func (r *CircleMemberRepository) RemoveMembership(ctx context.Context, circleID, userID uint64) error {
	return conn(ctx, r.DB).Where("circle_id = ? AND user_id = ?", circleID, userID).
		Delete(&model.CircleMember{}).Error
}

func (r *CircleMemberRepository) ListHostIDs(ctx context.Context, circleID uint64) ([]uint64, error) {
	var ids []uint64
	err := conn(ctx, r.DB).Model(&model.CircleMember{}).
		Where("circle_id = ? AND role = ?", circleID, model.RoleHost).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
