package domain

import "context"

// CouponRepository 定义了优惠券数据的持久化接口
type CouponRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
	// FindByIDForUpdate 在当前事务中对该行加锁
	FindByIDForUpdate(ctx context.Context, id string) (*Coupon, error)
	// MarkUsed 只在 is_used 仍为 false 时更新，否则返回 ErrCouponAlreadyUsed
	MarkUsed(ctx context.Context, coupon *Coupon) error
	AppendUsage(ctx context.Context, usage *CouponUsage) error
}
