// internal/service/promotion/domain/coupon.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType 决定折扣的计算方式
type CouponType string

const (
	CouponTypeFlat       CouponType = "flat"       // 立减固定金额
	CouponTypePercentage CouponType = "percentage" // 按比例折扣，可设上限
)

// Coupon 是用户持有的一张优惠券。
// 状态只能从未使用单向变为已使用，使用后 OrderID 与 UsedAt 不再改变。
type Coupon struct {
	ID          string
	Name        string
	Type        CouponType
	Value       int64
	MaxDiscount *int64 // 仅对 percentage 有效
	MinAmount   int64
	StartsAt    time.Time
	EndsAt      time.Time
	IsUsed      bool
	UserID      string
	OrderID     string
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// CouponUsage 是一次核销的审计记录，只追加不修改
type CouponUsage struct {
	ID             string
	CouponID       string
	UserID         string
	OrderID        string
	UsedAt         time.Time
	DiscountAmount int64
}

// CheckEligible 校验优惠券在 now 时刻对 orderTotal 是否可用。
// 使用期限的两端都包含在内。
func (c *Coupon) CheckEligible(orderTotal int64, now time.Time) error {
	switch {
	case c.IsUsed:
		return &CouponIneligibleError{CouponID: c.ID, Reason: ReasonAlreadyUsed}
	case orderTotal < c.MinAmount:
		return &CouponIneligibleError{CouponID: c.ID, Reason: ReasonBelowMinimum}
	case now.Before(c.StartsAt):
		return &CouponIneligibleError{CouponID: c.ID, Reason: ReasonNotStarted}
	case now.After(c.EndsAt):
		return &CouponIneligibleError{CouponID: c.ID, Reason: ReasonExpired}
	}
	return nil
}

func (c *Coupon) IsEligible(orderTotal int64, now time.Time) bool {
	return c.CheckEligible(orderTotal, now) == nil
}

// Consume 把优惠券标记为已使用，并生成核销记录。
// 对已使用的券再次调用返回 CouponAlreadyUsedError。
func (c *Coupon) Consume(usageID, orderID string, discount int64, now time.Time) (*CouponUsage, error) {
	if c.IsUsed {
		return nil, &CouponAlreadyUsedError{CouponID: c.ID, OrderID: c.OrderID}
	}
	usedAt := now
	c.IsUsed = true
	c.OrderID = orderID
	c.UsedAt = &usedAt

	return &CouponUsage{
		ID:             usageID,
		CouponID:       c.ID,
		UserID:         c.UserID,
		OrderID:        orderID,
		UsedAt:         usedAt,
		DiscountAmount: discount,
	}, nil
}

// ListEligible 过滤出可用的券，保持输入顺序
func ListEligible(coupons []*Coupon, orderTotal int64, now time.Time) []*Coupon {
	eligible := make([]*Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.IsEligible(orderTotal, now) {
			eligible = append(eligible, c)
		}
	}
	return eligible
}

// CalculateDiscount 计算折扣金额，结果总在 [0, orderTotal] 之间。
// 比例折扣向下取整到整数货币单位。
func CalculateDiscount(c *Coupon, orderTotal int64) int64 {
	if orderTotal <= 0 || c.Value <= 0 {
		return 0
	}

	var discount int64
	switch c.Type {
	case CouponTypeFlat:
		discount = c.Value
	case CouponTypePercentage:
		discount = decimal.NewFromInt(orderTotal).
			Mul(decimal.NewFromInt(c.Value)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = max(*c.MaxDiscount, 0)
		}
	default:
		return 0
	}
	return min(discount, orderTotal)
}
