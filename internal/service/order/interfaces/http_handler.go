package interfaces

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/middleware"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/domain"
	promotiondomain "storefront/internal/service/promotion/domain"
)

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 注册面向顾客的路由
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel-request", h.requestCancel)
	r.Post("/orders/{id}/return-request", h.requestReturn)
}

// RegisterAdminRoutes 注册管理员路由，调用方负责挂载 RequireAdmin
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/orders/{id}/status", h.changeStatus)
	r.Post("/admin/orders/{id}/approve-cancel", h.approveCancel)
	r.Post("/admin/orders/{id}/complete-return", h.completeReturn)
}

func (h *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req application.PlaceOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.service.PlaceOrder(r.Context(), middleware.Session(r), &req)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), middleware.Session(r))
	if err != nil {
		httpx.WriteError(w, statusFor(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, statusFor(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) requestCancel(w http.ResponseWriter, r *http.Request) {
	var req application.ReasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	h.respond(w)(h.service.RequestCancel(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), req.Reason))
}

func (h *OrderHandler) requestReturn(w http.ResponseWriter, r *http.Request) {
	var req application.ReasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	h.respond(w)(h.service.RequestReturn(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), req.Reason))
}

func (h *OrderHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req application.ChangeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	h.respond(w)(h.service.ChangeStatus(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), req))
}

func (h *OrderHandler) approveCancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.service.ApproveCancellation(r.Context(), middleware.Session(r), chi.URLParam(r, "id")))
}

func (h *OrderHandler) completeReturn(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.service.CompleteReturn(r.Context(), middleware.Session(r), chi.URLParam(r, "id")))
}

func (h *OrderHandler) respond(w http.ResponseWriter) func(*application.OrderView, error) {
	return func(order *application.OrderView, err error) {
		if err != nil {
			httpx.WriteError(w, statusFor(err), err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, order)
	}
}

// statusFor 把业务错误映射为 HTTP 状态码。下单时优惠券的错误也从这里返回。
func statusFor(err error) int {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, promotiondomain.ErrCouponNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrCancelAlreadyRequested),
		errors.Is(err, promotiondomain.ErrCouponAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, promotiondomain.ErrCouponIneligible):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
