package infrastructure

import (
	"database/sql"
	"time"
)

// OrderModel 对应数据库中的 orders 表。
// items 和 shipping 以 JSON 快照保存，不随商品信息变化。
type OrderModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);index:idx_orders_user_date,priority:1"`
	OrderDate time.Time `gorm:"index:idx_orders_user_date,priority:2"`
	Status    string    `gorm:"type:varchar(16);index"`
	Items     string    `gorm:"type:json"`
	Shipping  string    `gorm:"type:json"`

	PaymentMethod string         `gorm:"type:varchar(32)"`
	PaymentKey    sql.NullString `gorm:"type:varchar(200);uniqueIndex"`

	Subtotal       int64
	ShippingFee    int64
	DiscountAmount int64
	CouponID       sql.NullString `gorm:"type:varchar(36)"`
	TotalAmount    int64

	TrackingCarrier string `gorm:"type:varchar(64)"`
	TrackingNumber  string `gorm:"type:varchar(64)"`

	CancelReason      string
	CancelRequestedAt *time.Time
	CancelledAt       *time.Time
	ReturnReason      string
	ReturnRequestedAt *time.Time
	ReturnedAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// mutableOrderColumns 是订单创建后允许更新的列，金额与商品快照不在其中
var mutableOrderColumns = []string{
	"status",
	"tracking_carrier", "tracking_number",
	"cancel_reason", "cancel_requested_at", "cancelled_at",
	"return_reason", "return_requested_at", "returned_at",
	"updated_at",
}

// ProductModel 对应 products 表中库存对账需要的列
type ProductModel struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string
	Price     int64
	Stock     int
	Sales     int
	Status    string `gorm:"type:varchar(16)"`
	Brand     string `gorm:"type:varchar(64);index"`
	UpdatedAt time.Time
}

func (ProductModel) TableName() string {
	return "products"
}
