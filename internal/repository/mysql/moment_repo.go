package mysql

import (
	"context"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MomentRepository struct {
	DB *gorm.DB
}

func (r *MomentRepository) Create(ctx context.Context, m *model.Moment) error {
	return conn(ctx, r.DB).Create(m).Error
}

func (r *MomentRepository) FindByID(ctx context.Context, id uint64) (*model.Moment, error) {
	var m model.Moment
	return notFound(&m, conn(ctx, r.DB).First(&m, id).Error)
}

// FindByIDForUpdate 事务内给 moment 行加行锁，同一 moment 的报名写入在数据库层也串行
func (r *MomentRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*model.Moment, error) {
	var m model.Moment
	return notFound(&m, conn(ctx, r.DB).Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error)
}

func (r *MomentRepository) FindBySlug(ctx context.Context, slug string) (*model.Moment, error) {
	var m model.Moment
	return notFound(&m, conn(ctx, r.DB).Where("slug = ?", slug).First(&m).Error)
}

func (r *MomentRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := conn(ctx, r.DB).Model(&model.Moment{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// Update 全字段保存，capacity 置空也会写入
func (r *MomentRepository) Update(ctx context.Context, m *model.Moment) error {
	return conn(ctx, r.DB).Save(m).Error
}

// Delete 同一事务删除报名和评论
func (r *MomentRepository) Delete(ctx context.Context, id uint64) error {
	return conn(ctx, r.DB).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("moment_id = ?", id).Delete(&model.Registration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("moment_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Moment{}, id).Error
	})
}
