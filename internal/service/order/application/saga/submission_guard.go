package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
)

// SubmissionGuardHandler 用 payment key 做幂等占位，防止同一笔支付被重复下单。
// 没有 payment key 的订单直接放行，由数据库唯一索引兜底。
type SubmissionGuardHandler struct {
	NextHandler
}

func SubmissionKey(paymentKey string) string {
	return "order:submission:" + paymentKey
}

func (h *SubmissionGuardHandler) Handle(orderCtx *OrderContext) error {
	key := orderCtx.Order.PaymentKey
	if key == "" || orderCtx.Guard == nil {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.SubmissionGuard")
	span.SetAttributes(attribute.String("payment.key", key))

	ok, err := orderCtx.Guard.Acquire(ctx, SubmissionKey(key))
	if err != nil {
		span.RecordError(err)
		span.End()
		return apperr.Store("submission_guard.acquire", err)
	}
	if !ok {
		span.AddEvent("Duplicate submission rejected.")
		span.End()
		return domain.ErrDuplicateSubmission
	}
	span.End()

	// 后续步骤失败时释放占位，允许用户用同一个 payment key 重试
	orderCtx.AddCompensation(func(ctx context.Context) {
		if err := orderCtx.Guard.Release(ctx, SubmissionKey(key)); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("payment_key", key).Msg("failed to release submission guard")
		}
	})
	return h.executeNext(orderCtx)
}
