package infrastructure

import (
	"database/sql"
	"time"
)

// CouponModel 对应数据库中的 coupons 表
type CouponModel struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Name        string
	Type        string `gorm:"type:varchar(16)"`
	Value       int64
	MaxDiscount sql.NullInt64
	MinAmount   int64
	StartDate   time.Time
	EndDate     time.Time
	IsUsed      bool   `gorm:"not null;default:false"`
	UserID      string `gorm:"type:varchar(36);index"`
	OrderID     sql.NullString `gorm:"type:varchar(36)"`
	UsedAt      sql.NullTime
	CreatedAt   time.Time
}

// TableName 指定 GORM 应该使用的表名
func (CouponModel) TableName() string {
	return "coupons"
}

// CouponUsageModel 对应 coupon_usage 表，只插入不更新
type CouponUsageModel struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	CouponID       string `gorm:"type:varchar(36);index"`
	UserID         string `gorm:"type:varchar(36)"`
	OrderID        string `gorm:"type:varchar(36)"`
	UsedAt         time.Time
	DiscountAmount int64
}

func (CouponUsageModel) TableName() string {
	return "coupon_usage"
}
