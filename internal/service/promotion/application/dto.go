package application

import (
	"time"

	"storefront/internal/service/promotion/domain"
)

// CouponView 是返回给客户端的优惠券
type CouponView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Value       int64     `json:"value"`
	MaxDiscount *int64    `json:"max_discount,omitempty"`
	MinAmount   int64     `json:"min_amount"`
	StartsAt    time.Time `json:"start_date"`
	EndsAt      time.Time `json:"end_date"`
	Discount    int64     `json:"expected_discount"`
}

func toCouponView(c *domain.Coupon, orderTotal int64) CouponView {
	return CouponView{
		ID:          c.ID,
		Name:        c.Name,
		Type:        string(c.Type),
		Value:       c.Value,
		MaxDiscount: c.MaxDiscount,
		MinAmount:   c.MinAmount,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		Discount:    domain.CalculateDiscount(c, orderTotal),
	}
}

// QuoteResponse 是试算结果
type QuoteResponse struct {
	CouponID       string `json:"coupon_id"`
	OrderTotal     int64  `json:"order_total"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalAmount    int64  `json:"final_amount"`
}

// RedeemRequest 是下单时核销优惠券的请求，DiscountAmount 是客户端确认过的金额
type RedeemRequest struct {
	CouponID       string
	UserID         string
	OrderID        string
	OrderTotal     int64
	DiscountAmount int64
}

// ConsumeRequest 是独立核销接口的请求体
type ConsumeRequest struct {
	OrderID        string `json:"order_id"`
	OrderTotal     int64  `json:"order_total"`
	DiscountAmount int64  `json:"discount_amount"`
}
