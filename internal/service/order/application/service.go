// internal/service/order/application/service.go
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
	"storefront/internal/service/order/application/saga"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
)

// OrderApplicationService 只关注业务流程编排，每个方法都显式接收调用者会话。
type OrderApplicationService struct {
	orderRepo   domain.OrderRepository
	productRepo domain.ProductRepository
	tx          port.Transactor
	coupons     port.CouponRedeemer
	guard       port.SubmissionGuard
	publisher   port.EventPublisher
	tracer      trace.Tracer

	now   func() time.Time
	newID func() string
}

type Option func(*OrderApplicationService)

func WithClock(now func() time.Time) Option {
	return func(s *OrderApplicationService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *OrderApplicationService) { s.newID = newID }
}

// WithSubmissionGuard 配置 payment key 幂等占位，未配置时只依赖数据库唯一索引
func WithSubmissionGuard(g port.SubmissionGuard) Option {
	return func(s *OrderApplicationService) { s.guard = g }
}

// WithEventPublisher 配置订单事件发布，未配置时不发布
func WithEventPublisher(p port.EventPublisher) Option {
	return func(s *OrderApplicationService) { s.publisher = p }
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, productRepo domain.ProductRepository, tx port.Transactor, coupons port.CouponRedeemer, tracer trace.Tracer, opts ...Option) *OrderApplicationService {
	s := &OrderApplicationService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		tx:          tx,
		coupons:     coupons,
		tracer:      tracer,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder 创建订单。订单插入、库存扣减和优惠券核销在同一事务中完成。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, session auth.Session, req *PlaceOrderRequest) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", session.UserID))

	now := s.now()
	orderEntity, err := domain.NewOrder(domain.NewOrderParams{
		ID:       s.newID(),
		UserID:   session.UserID,
		Items:    req.Items,
		Shipping: req.Shipping,
		Payment:  req.Payment,
		Pricing:  req.Pricing,
	}, now)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	span.SetAttributes(attribute.String("order.id", orderEntity.ID))

	orderContext := &saga.OrderContext{
		Ctx:       ctx,
		Order:     orderEntity,
		Tracer:    s.tracer,
		Now:       s.now,
		Tx:        s.tx,
		Orders:    s.orderRepo,
		Products:  s.productRepo,
		Coupons:   s.coupons,
		Guard:     s.guard,
		Publisher: s.publisher,
	}

	if err := s.buildChain().Handle(orderContext); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderEntity.ID).Msg("order placement failed, running compensations")
		orderContext.TriggerCompensation(context.WithoutCancel(ctx))
		return nil, s.fail(ctx, span, err)
	}

	metrics.OrdersPlaced.WithLabelValues(string(orderEntity.Status)).Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", orderEntity.ID).
		Str("status", string(orderEntity.Status)).
		Int64("total_amount", orderEntity.TotalAmount).
		Msg("order placed")
	span.AddEvent("Order successfully placed.")
	return toOrderView(orderEntity), nil
}

// ListOrders 返回会话用户自己的订单
func (s *OrderApplicationService) ListOrders(ctx context.Context, session auth.Session) ([]*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	orders, err := s.orderRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views, nil
}

// GetOrder 非本人且非管理员时按不存在处理
func (s *OrderApplicationService) GetOrder(ctx context.Context, session auth.Session, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	if !session.Owns(o.UserID) {
		return nil, s.fail(ctx, span, domain.ErrOrderNotFound)
	}
	return toOrderView(o), nil
}

// ChangeStatus 管理员变更订单状态。
// 取消和退货完成会转给对应的用例，以保证库存回补总是发生。
func (s *OrderApplicationService) ChangeStatus(ctx context.Context, session auth.Session, orderID string, req ChangeStatusRequest) (*OrderView, error) {
	switch req.Status {
	case domain.StateCancelled:
		return s.ApproveCancellation(ctx, session, orderID)
	case domain.StateReturnCompleted:
		return s.CompleteReturn(ctx, session, orderID)
	}

	ctx, span := s.tracer.Start(ctx, "app.ChangeStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status.to", string(req.Status)))

	if !session.IsAdmin() {
		return nil, s.fail(ctx, span, apperr.ErrForbidden)
	}
	if !req.Status.Valid() {
		verr := &apperr.ValidationError{}
		verr.Add("status", "unknown order status")
		return nil, s.fail(ctx, span, verr)
	}

	o, from, err := s.mutate(ctx, orderID, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if req.Status == domain.StateShipping {
			return o.Ship(req.TrackingCarrier, req.TrackingNumber, now)
		}
		return o.Transition(req.Status, now)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.afterTransition(ctx, o, from, domain.EventOrderStatusChanged)
	return toOrderView(o), nil
}

// RequestCancel 记录用户的取消申请，等待管理员审批
func (s *OrderApplicationService) RequestCancel(ctx context.Context, session auth.Session, orderID, reason string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.RequestCancel")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	o, from, err := s.mutate(ctx, orderID, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if !session.Owns(o.UserID) {
			return domain.ErrOrderNotFound
		}
		return o.RequestCancel(reason, now)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.afterTransition(ctx, o, from, domain.EventCancelRequested)
	return toOrderView(o), nil
}

// ApproveCancellation 取消订单并回补每个商品的库存，两者在同一事务中
func (s *OrderApplicationService) ApproveCancellation(ctx context.Context, session auth.Session, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.ApproveCancellation")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if !session.IsAdmin() {
		return nil, s.fail(ctx, span, apperr.ErrForbidden)
	}
	o, from, err := s.mutate(ctx, orderID, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if err := o.Cancel(now); err != nil {
			return err
		}
		return s.restock(ctx, o)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.afterTransition(ctx, o, from, domain.EventOrderStatusChanged)
	return toOrderView(o), nil
}

// RequestReturn 用户对已送达订单申请退货，不回补库存
func (s *OrderApplicationService) RequestReturn(ctx context.Context, session auth.Session, orderID, reason string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.RequestReturn")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	o, from, err := s.mutate(ctx, orderID, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if !session.Owns(o.UserID) {
			return domain.ErrOrderNotFound
		}
		return o.RequestReturn(reason, now)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.afterTransition(ctx, o, from, domain.EventOrderStatusChanged)
	return toOrderView(o), nil
}

// CompleteReturn 确认退货入库：状态变为 반품완료 并回补库存
func (s *OrderApplicationService) CompleteReturn(ctx context.Context, session auth.Session, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.CompleteReturn")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if !session.IsAdmin() {
		return nil, s.fail(ctx, span, apperr.ErrForbidden)
	}
	o, from, err := s.mutate(ctx, orderID, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if err := o.CompleteReturn(now); err != nil {
			return err
		}
		return s.restock(ctx, o)
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.afterTransition(ctx, o, from, domain.EventOrderStatusChanged)
	return toOrderView(o), nil
}

// mutate 在事务中锁定订单、执行变更并写回
func (s *OrderApplicationService) mutate(ctx context.Context, orderID string, fn func(ctx context.Context, o *domain.Order, now time.Time) error) (*domain.Order, domain.State, error) {
	var (
		order *domain.Order
		from  domain.State
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if err := fn(ctx, o, s.now()); err != nil {
			return err
		}
		if err := s.orderRepo.Update(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, from, err
}

// restock 回补库存。商品记录已被删除时跳过，不阻止取消或退货。
func (s *OrderApplicationService) restock(ctx context.Context, o *domain.Order) error {
	quantities := o.Quantities()
	for id := range quantities {
		if _, err := s.productRepo.FindByID(ctx, id); errors.Is(err, domain.ErrProductNotFound) {
			logger.Ctx(ctx).Warn().Str("order_id", o.ID).Str("product_id", id).Msg("product no longer exists, skipping restock")
			delete(quantities, id)
		} else if err != nil {
			return err
		}
	}
	return saga.AdjustStock(ctx, s.productRepo, quantities, (*domain.Product).Restock)
}

// afterTransition 在事务提交后记录指标并发布事件，发布失败只记录日志
func (s *OrderApplicationService) afterTransition(ctx context.Context, o *domain.Order, from domain.State, typ domain.EventType) {
	if from != o.Status {
		metrics.OrderTransitions.WithLabelValues(string(from), string(o.Status)).Inc()
	}
	logger.Ctx(ctx).Info().
		Str("order_id", o.ID).
		Str("from", string(from)).
		Str("to", string(o.Status)).
		Msg("order updated")

	if s.publisher == nil {
		return
	}
	event := domain.NewOrderEvent(typ, o, from, s.now())
	if typ == domain.EventCancelRequested {
		event.Reason = o.CancelReason
	}
	event.TraceID = trace.SpanContextFromContext(ctx).TraceID().String()
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", o.ID).Msg("failed to publish order event")
	}
}

// fail 记录错误到 span；外部存储错误额外写错误日志
func (s *OrderApplicationService) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.IsStore(err) {
		logger.Ctx(ctx).Error().Err(errors.Unwrap(err)).Msg("order store operation failed")
	}
	return err
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	orderProcessingChain := new(saga.SubmissionGuardHandler)
	orderProcessingChain.
		SetNext(new(saga.PersistOrderHandler)).
		SetNext(new(saga.NotificationHandler))

	return orderProcessingChain
}
