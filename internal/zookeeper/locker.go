// internal/zookeeper/locker.go
package zookeeper

import (
	"context"
	"time"
)

// Locker 按资源 ID 获取分布式锁，返回的 unlock 用于释放
type Locker struct {
	conn    Conn
	timeout time.Duration
}

func NewLocker(conn Conn, timeout time.Duration) *Locker {
	return &Locker{conn: conn, timeout: timeout}
}

func (l *Locker) Lock(ctx context.Context, resourceID string) (func() error, error) {
	lock, err := NewDistributedLock(l.conn, resourceID)
	if err != nil {
		return nil, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return lock.Unlock, nil
}
