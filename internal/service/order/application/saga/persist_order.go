package saga

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/service/order/domain"
)

// PersistOrderHandler 在一个数据库事务里完成：插入订单、扣减库存、核销优惠券。
// 任何一步失败整个事务回滚。
type PersistOrderHandler struct {
	NextHandler
}

func (h *PersistOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	order := orderCtx.Order
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
		attribute.Bool("order.coupon", order.CouponID != ""),
	)

	err := orderCtx.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := orderCtx.Orders.Create(ctx, order); err != nil {
			return err
		}
		if err := AdjustStock(ctx, orderCtx.Products, order.Quantities(), (*domain.Product).Decrement); err != nil {
			return err
		}
		if order.CouponID == "" {
			return nil
		}
		if orderCtx.Coupons == nil {
			return errors.New("coupon redemption is not configured")
		}
		// 优惠券的门槛和折扣都按商品金额计算，不含运费
		return orderCtx.Coupons.RedeemCoupon(ctx, order.CouponID, order.UserID, order.ID, order.Subtotal, order.DiscountAmount)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.AddEvent("Order, stock and coupon committed.")

	return h.executeNext(orderCtx)
}

// AdjustStock 按商品 ID 排序后逐个加锁更新，保证并发事务的加锁顺序一致
func AdjustStock(ctx context.Context, products domain.ProductRepository, quantities map[string]int, apply func(*domain.Product, int)) error {
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p, err := products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		apply(p, quantities[id])
		if err := products.SaveStock(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
