package mysql

import (
	"context"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
)

type CircleRepository struct {
	DB *gorm.DB
}

// Create 同一事务写入 circle 和创建者的 HOST 成员关系
func (r *CircleRepository) Create(ctx context.Context, c *model.Circle, hostID uint64) error {
	return conn(ctx, r.DB).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		mRepo := &CircleMemberRepository{DB: tx}
		_, err := mRepo.AddMembership(withTx(ctx, tx), &model.CircleMember{
			CircleID: c.ID,
			UserID:   hostID,
			Role:     model.RoleHost,
		})
		return err
	})
}

func (r *CircleRepository) FindByID(ctx context.Context, id uint64) (*model.Circle, error) {
	var c model.Circle
	return notFound(&c, conn(ctx, r.DB).First(&c, id).Error)
}

func (r *CircleRepository) FindBySlug(ctx context.Context, slug string) (*model.Circle, error) {
	var c model.Circle
	return notFound(&c, conn(ctx, r.DB).Where("slug = ?", slug).First(&c).Error)
}

func (r *CircleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := conn(ctx, r.DB).Model(&model.Circle{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *CircleRepository) Update(ctx context.Context, c *model.Circle) error {
	return conn(ctx, r.DB).Model(c).Select("name", "description", "visibility", "category", "city", "updated_at").Updates(c).Error
}

// Delete 幂等硬删除，连同成员、关注关系以及该 circle 下的 moment、报名和评论
func (r *CircleRepository) Delete(ctx context.Context, id uint64) error {
	return conn(ctx, r.DB).Transaction(func(tx *gorm.DB) error {
		var momentIDs []uint64
		if err := tx.Model(&model.Moment{}).Where("circle_id = ?", id).Pluck("id", &momentIDs).Error; err != nil {
			return err
		}
		if len(momentIDs) > 0 {
			if err := tx.Where("moment_id IN ?", momentIDs).Delete(&model.Registration{}).Error; err != nil {
				return err
			}
			if err := tx.Where("moment_id IN ?", momentIDs).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", momentIDs).Delete(&model.Moment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("circle_id = ?", id).Delete(&model.CircleMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("circle_id = ?", id).Delete(&model.CircleFollow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Circle{}, id).Error
	})
}
