// Package port 定义订单上下文依赖的出站端口。
package port

import (
	"context"

	"storefront/internal/service/order/domain"
)

// CouponRedeemer 在订单事务中核销优惠券，由 promotion 上下文实现
type CouponRedeemer interface {
	RedeemCoupon(ctx context.Context, couponID, userID, orderID string, orderTotal, discount int64) error
}

// EventPublisher 发布订单事件
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OrderEvent) error
}

// SubmissionGuard 防止同一个 payment key 被重复提交。
// Acquire 返回 false 表示 key 已被占用。
type SubmissionGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Transactor 在同一个数据库事务中执行 fn
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
