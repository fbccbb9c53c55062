package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/database"
	"storefront/internal/service/promotion/domain"
)

// GormCouponRepository 是 CouponRepository 的 GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository 创建一个新的 GORM 仓储实例
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

func (r *GormCouponRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Coupon, error) {
	var models []CouponModel
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperr.Store("coupons.list", err)
	}

	coupons := make([]*domain.Coupon, len(models))
	for i := range models {
		coupons[i] = ToDomainCoupon(&models[i])
	}
	return coupons, nil
}

func (r *GormCouponRepository) FindByID(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

// FindByIDForUpdate 使用 SELECT ... FOR UPDATE，需要在事务中调用才有意义
func (r *GormCouponRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.find(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCouponRepository) find(db *gorm.DB, id string) (*domain.Coupon, error) {
	var model CouponModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, apperr.Store("coupons.find", err)
	}
	return ToDomainCoupon(&model), nil
}

// MarkUsed 是条件更新：只有 is_used 仍为 false 的行会被修改
func (r *GormCouponRepository) MarkUsed(ctx context.Context, coupon *domain.Coupon) error {
	var usedAt sql.NullTime
	if coupon.UsedAt != nil {
		usedAt = sql.NullTime{Time: *coupon.UsedAt, Valid: true}
	}
	res := database.Conn(ctx, r.db).
		Model(&CouponModel{}).
		Where("id = ? AND is_used = ?", coupon.ID, false).
		Updates(map[string]interface{}{
			"is_used":  true,
			"order_id": nullString(coupon.OrderID),
			"used_at":  usedAt,
		})
	if res.Error != nil {
		return apperr.Store("coupons.mark_used", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.CouponAlreadyUsedError{CouponID: coupon.ID}
	}
	return nil
}

func (r *GormCouponRepository) AppendUsage(ctx context.Context, usage *domain.CouponUsage) error {
	if err := database.Conn(ctx, r.db).Create(FromDomainUsage(usage)).Error; err != nil {
		return apperr.Store("coupon_usage.insert", err)
	}
	return nil
}
