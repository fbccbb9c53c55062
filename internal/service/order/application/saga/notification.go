package saga

import (
	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
)

// NotificationHandler 是下单流程的最后一步，发布订单创建事件。
type NotificationHandler struct {
	NextHandler
}

func (h *NotificationHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.Publisher == nil {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Notification")
	defer span.End()
	span.SetAttributes(attribute.String("messaging.system", "kafka"))

	event := domain.NewOrderEvent(domain.EventOrderPlaced, orderCtx.Order, "", orderCtx.Now())
	event.TraceID = span.SpanContext().TraceID().String()

	// 订单已经提交，通知失败不影响下单结果，只记录
	if err := orderCtx.Publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", orderCtx.Order.ID).Msg("failed to publish order placed event")
		span.RecordError(err)
	}

	return h.executeNext(orderCtx)
}
