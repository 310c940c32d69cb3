package mysql

import (
	"context"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return conn(ctx, r.DB).Create(c).Error
}

func (r *CommentRepository) FindByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	return notFound(&c, conn(ctx, r.DB).First(&c, id).Error)
}

// Delete 硬删除，幂等
func (r *CommentRepository) Delete(ctx context.Context, id uint64) error {
	return conn(ctx, r.DB).Delete(&model.Comment{}, id).Error
}

// ListByMoment 按 id 升序的游标分页，cursor 为上一页最后一条的 id
func (r *CommentRepository) ListByMoment(ctx context.Context, momentID, cursor uint64, limit int) ([]model.Comment, uint64, error) {
	q := conn(ctx, r.DB).Model(&model.Comment{}).Where("moment_id = ?", momentID)
	if cursor > 0 {
		q = q.Where("id > ?", cursor)
	}
	var rows []model.Comment
	// 这里limit+1是为了判断是否还有下一页
	if err := q.Order("id ASC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}
