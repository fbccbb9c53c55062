// internal/service/order/application/dto.go
package application

import (
	"time"

	"storefront/internal/service/order/domain"
)

// PlaceOrderRequest 是创建订单用例的输入数据，用户 ID 来自会话而不是请求体
type PlaceOrderRequest struct {
	Items    []domain.OrderItem  `json:"items"`
	Shipping domain.ShippingInfo `json:"shipping"`
	Payment  domain.Payment      `json:"payment"`
	Pricing  domain.Pricing      `json:"pricing"`
}

// ChangeStatusRequest 是管理员变更订单状态的请求，物流信息只在进入 배송중 时使用
type ChangeStatusRequest struct {
	Status          domain.State `json:"status"`
	TrackingCarrier string       `json:"tracking_carrier,omitempty"`
	TrackingNumber  string       `json:"tracking_number,omitempty"`
}

// ReasonRequest 是取消/退货申请的请求体
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// OrderView 是返回给客户端的订单
type OrderView struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	OrderDate       time.Time           `json:"order_date"`
	Status          domain.State        `json:"status"`
	Items           []domain.OrderItem  `json:"items"`
	Shipping        domain.ShippingInfo `json:"shipping"`
	PaymentMethod   string              `json:"payment_method"`
	Subtotal        int64               `json:"subtotal"`
	ShippingFee     int64               `json:"shipping_fee"`
	DiscountAmount  int64               `json:"discount_amount"`
	CouponID        string              `json:"coupon_id,omitempty"`
	TotalAmount     int64               `json:"total_amount"`
	TrackingCarrier string              `json:"tracking_carrier,omitempty"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CancelRequested *time.Time          `json:"cancel_requested_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	ReturnReason    string              `json:"return_reason,omitempty"`
	ReturnRequested *time.Time          `json:"return_requested_at,omitempty"`
	ReturnedAt      *time.Time          `json:"returned_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toOrderView(o *domain.Order) *OrderView {
	return &OrderView{
		ID:              o.ID,
		UserID:          o.UserID,
		OrderDate:       o.OrderDate,
		Status:          o.Status,
		Items:           o.Items,
		Shipping:        o.Shipping,
		PaymentMethod:   o.PaymentMethod,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		DiscountAmount:  o.DiscountAmount,
		CouponID:        o.CouponID,
		TotalAmount:     o.TotalAmount,
		TrackingCarrier: o.TrackingCarrier,
		TrackingNumber:  o.TrackingNumber,
		CancelReason:    o.CancelReason,
		CancelRequested: o.CancelRequestedAt,
		CancelledAt:     o.CancelledAt,
		ReturnReason:    o.ReturnReason,
		ReturnRequested: o.ReturnRequestedAt,
		ReturnedAt:      o.ReturnedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
