// internal/service/promotion/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/service/promotion/domain"
)

// PromotionService 提供优惠券相关的业务用例
type PromotionService struct {
	couponRepo domain.CouponRepository
	tx         Transactor
	locker     Locker
	tracer     trace.Tracer

	now   func() time.Time
	newID func() string
}

type Option func(*PromotionService)

// WithClock 替换时钟，测试中用于固定"当前时间"
func WithClock(now func() time.Time) Option {
	return func(s *PromotionService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *PromotionService) { s.newID = newID }
}

// NewPromotionService 创建一个新的优惠服务实例
func NewPromotionService(repo domain.CouponRepository, tx Transactor, locker Locker, tracer trace.Tracer, opts ...Option) *PromotionService {
	s := &PromotionService{
		couponRepo: repo,
		tx:         tx,
		locker:     locker,
		tracer:     tracer,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListEligible 返回会话用户在当前时刻对 orderTotal 可用的券
func (s *PromotionService) ListEligible(ctx context.Context, session auth.Session, orderTotal int64) ([]CouponView, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.ListEligible")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", session.UserID), attribute.Int64("order.total", orderTotal))

	coupons, err := s.couponRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	eligible := domain.ListEligible(coupons, orderTotal, s.now())
	views := make([]CouponView, 0, len(eligible))
	for _, c := range eligible {
		views = append(views, toCouponView(c, orderTotal))
	}
	span.SetAttributes(attribute.Int("coupons.eligible", len(views)))
	return views, nil
}

// Quote 按当前时间和存储中的状态重新校验，并返回折扣试算结果
func (s *PromotionService) Quote(ctx context.Context, session auth.Session, couponID string, orderTotal int64) (*QuoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Quote")
	defer span.End()
	span.SetAttributes(attribute.String("coupon.id", couponID), attribute.Int64("order.total", orderTotal))

	coupon, err := s.couponRepo.FindByID(ctx, couponID)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	if coupon.UserID != session.UserID {
		return nil, s.fail(ctx, span, domain.ErrCouponNotFound)
	}
	if err := coupon.CheckEligible(orderTotal, s.now()); err != nil {
		return nil, s.fail(ctx, span, err)
	}

	discount := domain.CalculateDiscount(coupon, orderTotal)
	return &QuoteResponse{
		CouponID:       coupon.ID,
		OrderTotal:     orderTotal,
		DiscountAmount: discount,
		FinalAmount:    orderTotal - discount,
	}, nil
}

// Consume 是独立的核销入口，券必须属于会话用户
func (s *PromotionService) Consume(ctx context.Context, session auth.Session, couponID string, req ConsumeRequest) (*domain.CouponUsage, error) {
	return s.Redeem(ctx, RedeemRequest{
		CouponID:       couponID,
		UserID:         session.UserID,
		OrderID:        req.OrderID,
		OrderTotal:     req.OrderTotal,
		DiscountAmount: req.DiscountAmount,
	})
}

// RedeemCoupon 让订单上下文在自己的事务里核销优惠券
func (s *PromotionService) RedeemCoupon(ctx context.Context, couponID, userID, orderID string, orderTotal, discount int64) error {
	_, err := s.Redeem(ctx, RedeemRequest{
		CouponID:       couponID,
		UserID:         userID,
		OrderID:        orderID,
		OrderTotal:     orderTotal,
		DiscountAmount: discount,
	})
	return err
}

// Redeem 是核销优惠券的核心逻辑。
// 客户端持有的券状态可能已过期，所以这里在行锁下重新读取并按当前时间校验，
// 折扣金额也必须与服务端重算的结果一致。
func (s *PromotionService) Redeem(ctx context.Context, req RedeemRequest) (*domain.CouponUsage, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Redeem")
	defer span.End()
	span.SetAttributes(
		attribute.String("coupon.id", req.CouponID),
		attribute.String("user.id", req.UserID),
		attribute.String("order.id", req.OrderID),
	)

	verr := &apperr.ValidationError{}
	if req.CouponID == "" {
		verr.Add("coupon_id", "required")
	}
	if req.OrderID == "" {
		verr.Add("order_id", "required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, s.fail(ctx, span, err)
	}

	unlock, err := s.locker.Lock(ctx, "coupon-"+req.CouponID)
	if err != nil {
		return nil, s.fail(ctx, span, apperr.Store("coupon.lock", err))
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("coupon_id", req.CouponID).Msg("failed to release coupon lock")
		}
	}()

	var (
		usage  *domain.CouponUsage
		coupon *domain.Coupon
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		coupon, err = s.couponRepo.FindByIDForUpdate(ctx, req.CouponID)
		if err != nil {
			return err
		}
		if coupon.UserID != req.UserID {
			return domain.ErrCouponNotFound
		}
		if coupon.IsUsed {
			return &domain.CouponAlreadyUsedError{CouponID: coupon.ID, OrderID: coupon.OrderID}
		}

		now := s.now()
		if err := coupon.CheckEligible(req.OrderTotal, now); err != nil {
			return err
		}
		discount := domain.CalculateDiscount(coupon, req.OrderTotal)
		if discount != req.DiscountAmount {
			return &domain.CouponIneligibleError{CouponID: coupon.ID, Reason: domain.ReasonDiscountMismatch}
		}

		usage, err = coupon.Consume(s.newID(), req.OrderID, discount, now)
		if err != nil {
			return err
		}
		if err := s.couponRepo.MarkUsed(ctx, coupon); err != nil {
			return err
		}
		return s.couponRepo.AppendUsage(ctx, usage)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	metrics.CouponsConsumed.WithLabelValues(string(coupon.Type)).Inc()
	metrics.CouponDiscountAmount.Add(float64(usage.DiscountAmount))
	logger.Ctx(ctx).Info().
		Str("coupon_id", coupon.ID).
		Str("order_id", req.OrderID).
		Int64("discount", usage.DiscountAmount).
		Msg("coupon consumed")
	span.AddEvent("Coupon marked as used")
	return usage, nil
}

// fail 记录错误到 span；外部存储错误额外写错误日志，业务错误原样返回给调用方
func (s *PromotionService) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.IsStore(err) {
		logger.Ctx(ctx).Error().Err(errors.Unwrap(err)).Msg("promotion store operation failed")
	}
	return err
}
