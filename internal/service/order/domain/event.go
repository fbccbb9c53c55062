// internal/service/order/domain/event.go
package domain

import "time"

// EventType 订单事件类型
type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventCancelRequested    EventType = "order.cancel_requested"
)

// OrderEvent 在订单创建或状态变化后发布，供下游通知等服务消费
type OrderEvent struct {
	Type        EventType `json:"type"`
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	FromStatus  State     `json:"fromStatus,omitempty"`
	Status      State     `json:"status"`
	TotalAmount int64     `json:"totalAmount"`
	Reason      string    `json:"reason,omitempty"`
	TraceID     string    `json:"traceId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewOrderEvent 根据订单当前状态生成事件
func NewOrderEvent(typ EventType, o *Order, from State, now time.Time) *OrderEvent {
	return &OrderEvent{
		Type:        typ,
		OrderID:     o.ID,
		UserID:      o.UserID,
		FromStatus:  from,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  now,
	}
}
