package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/loyalty/domain"
	orderdomain "storefront/internal/service/order/domain"
)

// OrderHistory 读取用户的订单历史，由订单仓储实现
type OrderHistory interface {
	ListByUser(ctx context.Context, userID string) ([]*orderdomain.Order, error)
}

// TierService 每次调用都从订单历史重新计算等级
type TierService struct {
	orders OrderHistory
	tracer trace.Tracer
}

func NewTierService(orders OrderHistory, tracer trace.Tracer) *TierService {
	return &TierService{orders: orders, tracer: tracer}
}

// ForUser 计算会话用户当前的会员等级
func (s *TierService) ForUser(ctx context.Context, session auth.Session) (*domain.TierStatus, error) {
	ctx, span := s.tracer.Start(ctx, "loyalty.ForUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", session.UserID))

	orders, err := s.orders.ListByUser(ctx, session.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Ctx(ctx).Error().Err(err).Str("user_id", session.UserID).Msg("failed to load order history for tier")
		return nil, err
	}

	status := domain.ComputeTier(orders)
	span.SetAttributes(attribute.String("loyalty.tier", status.Tier), attribute.Float64("loyalty.progress", status.ProgressPct))
	return &status, nil
}
