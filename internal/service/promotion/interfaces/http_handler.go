package interfaces

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/middleware"
	"storefront/internal/service/promotion/application"
	"storefront/internal/service/promotion/domain"
)

// PromotionHandler 封装了 promotion 服务的 HTTP 处理器
type PromotionHandler struct {
	service *application.PromotionService
}

// NewPromotionHandler 创建一个新的 HTTP 处理器实例
func NewPromotionHandler(service *application.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// RegisterRoutes 注册路由，调用方负责挂载认证中间件
func (h *PromotionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/coupons/eligible", h.listEligible)
	r.Post("/coupons/{id}/quote", h.quote)
	r.Post("/coupons/{id}/consume", h.consume)
}

type quoteRequest struct {
	OrderTotal int64 `json:"order_total"`
}

func (h *PromotionHandler) listEligible(w http.ResponseWriter, r *http.Request) {
	total, err := strconv.ParseInt(r.URL.Query().Get("order_total"), 10, 64)
	if err != nil || total < 0 {
		verr := &apperr.ValidationError{}
		verr.Add("order_total", "must be a non-negative integer")
		httpx.WriteError(w, http.StatusBadRequest, verr)
		return
	}

	coupons, err := h.service.ListEligible(r.Context(), middleware.Session(r), total)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, coupons)
}

func (h *PromotionHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.service.Quote(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), req.OrderTotal)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *PromotionHandler) consume(w http.ResponseWriter, r *http.Request) {
	var req application.ConsumeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	usage, err := h.service.Consume(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, statusFor(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coupon_id":       usage.CouponID,
		"order_id":        usage.OrderID,
		"discount_amount": usage.DiscountAmount,
		"used_at":         usage.UsedAt,
	})
}

func statusFor(err error) int {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCouponNotFound), errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCouponAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCouponIneligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
