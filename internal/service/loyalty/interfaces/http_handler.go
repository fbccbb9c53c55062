package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/middleware"
	"storefront/internal/service/loyalty/application"
)

// TierHandler 暴露会员等级查询
type TierHandler struct {
	service *application.TierService
}

func NewTierHandler(service *application.TierService) *TierHandler {
	return &TierHandler{service: service}
}

func (h *TierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me/tier", h.myTier)
}

func (h *TierHandler) myTier(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.ForUser(r.Context(), middleware.Session(r))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}
