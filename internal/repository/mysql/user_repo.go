package mysql

import (
	"context"

	"Lee_Moments/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户由账号系统写入，这里只读
type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	return notFound(&user, conn(ctx, r.DB).First(&user, id).Error)
}
