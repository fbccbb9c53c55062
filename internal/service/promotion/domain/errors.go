// internal/service/promotion/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponIneligible  = errors.New("coupon is not eligible")
	ErrCouponAlreadyUsed = errors.New("coupon already used")
)

// IneligibleReason 说明优惠券不可用的原因
type IneligibleReason string

const (
	ReasonAlreadyUsed      IneligibleReason = "already_used"
	ReasonBelowMinimum     IneligibleReason = "min_amount"
	ReasonNotStarted       IneligibleReason = "not_started"
	ReasonExpired          IneligibleReason = "expired"
	ReasonDiscountMismatch IneligibleReason = "discount_mismatch"
)

// CouponIneligibleError 金额、期限或状态不满足使用条件
type CouponIneligibleError struct {
	CouponID string
	Reason   IneligibleReason
}

func (e *CouponIneligibleError) Error() string {
	return fmt.Sprintf("coupon %s is not eligible: %s", e.CouponID, e.Reason)
}

func (e *CouponIneligibleError) Is(target error) bool { return target == ErrCouponIneligible }

// CouponAlreadyUsedError 重复核销同一张券
type CouponAlreadyUsedError struct {
	CouponID string
	OrderID  string // 先前核销时关联的订单
}

func (e *CouponAlreadyUsedError) Error() string {
	return fmt.Sprintf("coupon %s already used by order %s", e.CouponID, e.OrderID)
}

func (e *CouponAlreadyUsedError) Is(target error) bool { return target == ErrCouponAlreadyUsed }
