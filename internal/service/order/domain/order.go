// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront/internal/pkg/apperr"
)

// OrderItem 是下单时商品状态的快照，之后商品改价不影响历史订单
type OrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Price     int64  `json:"price" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Image     string `json:"image"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Brand     string `json:"brand,omitempty"`
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ShippingInfo 收货信息
type ShippingInfo struct {
	RecipientName string `json:"recipient_name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	ZipCode       string `json:"zip_code" validate:"required"`
	Address       string `json:"address" validate:"required"`
	AddressDetail string `json:"address_detail"`
	Memo          string `json:"memo,omitempty"`
}

// Payment 描述支付方式以及支付网关是否已经确认
type Payment struct {
	Method    string `json:"payment_method" validate:"required"`
	Key       string `json:"payment_key"`
	Confirmed bool   `json:"payment_confirmed"`
}

// Pricing 是调用方在下单前已经和用户确认过的金额，订单不重新定价，只校验一致性
type Pricing struct {
	ShippingFee    int64  `json:"shipping_fee" validate:"gte=0"`
	DiscountAmount int64  `json:"discount_amount" validate:"gte=0"`
	TotalAmount    int64  `json:"total_amount" validate:"gte=0"`
	CouponID       string `json:"coupon_id"`
}

// Order 是订单聚合的根实体
type Order struct {
	ID        string
	UserID    string
	OrderDate time.Time
	Status    State
	Items     []OrderItem
	Shipping  ShippingInfo

	PaymentMethod string
	PaymentKey    string

	Subtotal       int64
	ShippingFee    int64
	DiscountAmount int64
	CouponID       string
	TotalAmount    int64 // 创建时确定，之后不再重算

	TrackingCarrier string
	TrackingNumber  string

	CancelReason      string
	CancelRequestedAt *time.Time
	CancelledAt       *time.Time

	ReturnReason      string
	ReturnRequestedAt *time.Time
	ReturnedAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrderParams 是创建订单需要的全部输入
type NewOrderParams struct {
	ID       string       `json:"-"`
	UserID   string       `json:"user_id" validate:"required"`
	Items    []OrderItem  `json:"items" validate:"required,min=1,dive"`
	Shipping ShippingInfo `json:"shipping"`
	Payment  Payment      `json:"payment"`
	Pricing  Pricing      `json:"pricing"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewOrder 用于创建一个新的订单实例。
// 支付已确认的订单直接进入 결제완료，否则为 주문접수。
func NewOrder(p NewOrderParams, now time.Time) (*Order, error) {
	verr := &apperr.ValidationError{}
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe.Namespace()), fe.Tag())
		}
	}

	var subtotal int64
	for _, item := range p.Items {
		subtotal += item.Subtotal()
	}
	if p.Pricing.DiscountAmount > subtotal+p.Pricing.ShippingFee {
		verr.Add("pricing.discount_amount", "exceeds order amount")
	}
	if p.Pricing.DiscountAmount > 0 && p.Pricing.CouponID == "" {
		verr.Add("pricing.coupon_id", "required when a discount is applied")
	}
	if p.Pricing.TotalAmount != subtotal+p.Pricing.ShippingFee-p.Pricing.DiscountAmount {
		verr.Add("pricing.total_amount", "does not equal items + shipping - discount")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	status := StateReceived
	if p.Payment.Confirmed {
		status = StatePaid
	}
	items := make([]OrderItem, len(p.Items))
	copy(items, p.Items)

	return &Order{
		ID:             p.ID,
		UserID:         p.UserID,
		OrderDate:      now,
		Status:         status,
		Items:          items,
		Shipping:       p.Shipping,
		PaymentMethod:  p.Payment.Method,
		PaymentKey:     p.Payment.Key,
		Subtotal:       subtotal,
		ShippingFee:    p.Pricing.ShippingFee,
		DiscountAmount: p.Pricing.DiscountAmount,
		CouponID:       p.Pricing.CouponID,
		TotalAmount:    p.Pricing.TotalAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// fieldPath 去掉校验器给出的根类型名，例如 NewOrderParams.items[0].quantity -> items[0].quantity
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Transition 是所有状态变更的唯一入口
func (o *Order) Transition(to State, now time.Time) error {
	if !o.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// Ship 进入运输状态，同时记录物流单号
func (o *Order) Ship(carrier, number string, now time.Time) error {
	if err := o.Transition(StateShipping, now); err != nil {
		return err
	}
	o.SetTracking(carrier, number)
	return nil
}

// SetTracking 只覆盖非空字段
func (o *Order) SetTracking(carrier, number string) {
	if carrier != "" {
		o.TrackingCarrier = carrier
	}
	if number != "" {
		o.TrackingNumber = number
	}
}

// RequestCancel 记录一条待审批的取消申请，不改变状态，也不回补库存
func (o *Order) RequestCancel(reason string, now time.Time) error {
	if !o.Status.Cancellable() {
		return &InvalidTransitionError{From: o.Status, To: StateCancelled}
	}
	if o.CancelRequestedAt != nil {
		return ErrCancelAlreadyRequested
	}
	if strings.TrimSpace(reason) == "" {
		verr := &apperr.ValidationError{}
		verr.Add("reason", "required")
		return verr
	}
	o.CancelReason = reason
	o.CancelRequestedAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *Order) HasPendingCancel() bool {
	return o.CancelRequestedAt != nil && o.Status.Cancellable()
}

// Cancel 取消订单，库存回补由调用方在同一事务中完成
func (o *Order) Cancel(now time.Time) error {
	if err := o.Transition(StateCancelled, now); err != nil {
		return err
	}
	o.CancelledAt = &now
	return nil
}

// RequestReturn 只允许已送达的订单申请退货
func (o *Order) RequestReturn(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		verr := &apperr.ValidationError{}
		verr.Add("reason", "required")
		return verr
	}
	if err := o.Transition(StateReturnRequested, now); err != nil {
		return err
	}
	o.ReturnReason = reason
	o.ReturnRequestedAt = &now
	return nil
}

// CompleteReturn 确认收到退货，库存回补由调用方在同一事务中完成
func (o *Order) CompleteReturn(now time.Time) error {
	if err := o.Transition(StateReturnCompleted, now); err != nil {
		return err
	}
	o.ReturnedAt = &now
	return nil
}

// Quantities 按商品汇总数量，同一商品出现多行时合并
func (o *Order) Quantities() map[string]int {
	q := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		q[item.ProductID] += item.Quantity
	}
	return q
}
