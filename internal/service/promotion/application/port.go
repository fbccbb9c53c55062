package application

import "context"

// Transactor 在同一个数据库事务中执行 fn；已在事务中时复用外层事务
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker 是跨实例的互斥锁，用于串行化同一张券的核销
type Locker interface {
	Lock(ctx context.Context, resourceID string) (unlock func() error, err error)
}

// NopLocker 在单实例部署或未配置 ZooKeeper 时使用，只依赖行锁
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func() error, error) {
	return func() error { return nil }, nil
}
