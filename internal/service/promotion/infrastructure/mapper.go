package infrastructure

import (
	"database/sql"

	"storefront/internal/service/promotion/domain"
)

// ToDomainCoupon 将数据库模型转换为领域模型
func ToDomainCoupon(model *CouponModel) *domain.Coupon {
	if model == nil {
		return nil
	}
	c := &domain.Coupon{
		ID:        model.ID,
		Name:      model.Name,
		Type:      domain.CouponType(model.Type),
		Value:     model.Value,
		MinAmount: model.MinAmount,
		StartsAt:  model.StartDate,
		EndsAt:    model.EndDate,
		IsUsed:    model.IsUsed,
		UserID:    model.UserID,
		OrderID:   model.OrderID.String,
		CreatedAt: model.CreatedAt,
	}
	if model.MaxDiscount.Valid {
		v := model.MaxDiscount.Int64
		c.MaxDiscount = &v
	}
	if model.UsedAt.Valid {
		t := model.UsedAt.Time
		c.UsedAt = &t
	}
	return c
}

// FromDomainUsage 将核销记录转换为数据库模型
func FromDomainUsage(u *domain.CouponUsage) *CouponUsageModel {
	return &CouponUsageModel{
		ID:             u.ID,
		CouponID:       u.CouponID,
		UserID:         u.UserID,
		OrderID:        u.OrderID,
		UsedAt:         u.UsedAt,
		DiscountAmount: u.DiscountAmount,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
