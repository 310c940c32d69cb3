package mysql

import (
	"context"
	"time"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
)

type RegistrationRepository struct {
	DB *gorm.DB
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint64) (*model.Registration, error) {
	var reg model.Registration
	return notFound(&reg, conn(ctx, r.DB).First(&reg, id).Error)
}

func (r *RegistrationRepository) FindByMomentAndUser(ctx context.Context, momentID, userID uint64) (*model.Registration, error) {
	var reg model.Registration
	err := conn(ctx, r.DB).Where("moment_id = ? AND user_id = ?", momentID, userID).First(&reg).Error
	return notFound(&reg, err)
}

// Create 唯一索引 (moment_id, user_id) 兜底重复报名
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	return conn(ctx, r.DB).Create(reg).Error
}

func (r *RegistrationRepository) Update(ctx context.Context, reg *model.Registration) error {
	return conn(ctx, r.DB).Save(reg).Error
}

// UpdateStatus 条件更新，只动 status，不碰 registered_at
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id uint64, from, to model.RegistrationStatus) (bool, error) {
	tx := conn(ctx, r.DB).Model(&model.Registration{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *RegistrationRepository) CountByMomentAndStatus(ctx context.Context, momentID uint64, status model.RegistrationStatus) (int64, error) {
	var n int64
	err := conn(ctx, r.DB).Model(&model.Registration{}).
		Where("moment_id = ? AND status = ?", momentID, status).
		Count(&n).Error
	return n, err
}

// FindFirstWaitlisted 索引 (moment_id, status, registered_at)
func (r *RegistrationRepository) FindFirstWaitlisted(ctx context.Context, momentID uint64) (*model.Registration, error) {
	var reg model.Registration
	err := conn(ctx, r.DB).
		Where("moment_id = ? AND status = ?", momentID, model.RegistrationWaitlisted).
		Order("registered_at ASC, id ASC").
		First(&reg).Error
	return notFound(&reg, err)
}

func (r *RegistrationRepository) FindFutureActiveByUserAndCircle(ctx context.Context, userID, circleID uint64, now time.Time) ([]model.Registration, error) {
	var list []model.Registration
	err := conn(ctx, r.DB).
		Joins("JOIN moments ON moments.id = registrations.moment_id").
		Where("registrations.user_id = ? AND registrations.status <> ?", userID, model.RegistrationCancelled).
		Where("moments.circle_id = ? AND moments.starts_at > ? AND moments.status <> ?", circleID, now, model.MomentCancelled).
		Order("registrations.id ASC").
		Find(&list).Error
	return list, err
}

func (r *RegistrationRepository) ListActiveUserIDs(ctx context.Context, momentID uint64) ([]uint64, error) {
	var ids []uint64
	err := conn(ctx, r.DB).Model(&model.Registration{}).
		Where("moment_id = ? AND status <> ?", momentID, model.RegistrationCancelled).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
