package mysql

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager 把事务放进 ctx，事务内的 repo 调用都走同一个 tx
type TxManager struct {
	DB *gorm.DB
}

// InTx 已在事务内时直接复用外层事务
func (m *TxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// conn 优先使用 ctx 里的事务
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
