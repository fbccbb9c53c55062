// internal/pkg/database/tx.go
package database

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/pkg/apperr"
)

type txKey struct{}

// TxManager 把一次业务操作中的多步写入放进同一个数据库事务。
// 事务句柄通过 context 传递，仓储用 Conn 取出，从而跨限界上下文共享事务。
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx 在事务中执行 fn；如果 ctx 已经处于事务中，则直接复用外层事务。
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	var fnErr error
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(context.WithValue(ctx, txKey{}, tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		// fn 成功但 begin/commit 失败
		return apperr.Store("tx.commit", err)
	}
	return err
}

// Conn 返回当前事务（若有）或普通连接
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
