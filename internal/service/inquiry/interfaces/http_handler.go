package interfaces

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/middleware"
	"storefront/internal/service/inquiry/application"
)

// InquiryHandler 封装了咨询提交接口
type InquiryHandler struct {
	service *application.InquiryService
}

func NewInquiryHandler(service *application.InquiryService) *InquiryHandler {
	return &InquiryHandler{service: service}
}

func (h *InquiryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/inquiries", h.submit)
}

func (h *InquiryHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req application.SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.Submit(r.Context(), middleware.Session(r), req)
	if err != nil {
		status := http.StatusInternalServerError
		var verr *apperr.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		httpx.WriteError(w, status, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, view)
}
