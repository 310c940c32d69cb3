package mysql

import (
	"context"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func (r *OutboxRepository) Insert(ctx context.Context, rows []model.Outbox) error {
	if len(rows) == 0 {
		return nil
	}
	return conn(ctx, r.DB).Create(&rows).Error
}

// List 待投递和失败未超重试次数的记录
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.Outbox, error) {
	var list []model.Outbox
	if err := conn(ctx, r.DB).
		Where("status IN ? AND retry < ?", []int8{model.OutboxPending, model.OutboxFailed}, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return conn(ctx, r.DB).Model(&model.Outbox{}).Where("id=?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return conn(ctx, r.DB).Model(&model.Outbox{}).Where("id=?", id).
		Update("status", model.OutboxSent).Error
}
