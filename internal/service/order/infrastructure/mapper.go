package infrastructure

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"storefront/internal/service/order/domain"
)

// FromDomainOrder 将领域模型转换为数据库模型
func FromDomainOrder(o *domain.Order) (*OrderModel, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order items")
	}
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return nil, errors.Wrap(err, "marshal shipping info")
	}
	return &OrderModel{
		ID:                o.ID,
		UserID:            o.UserID,
		OrderDate:         o.OrderDate,
		Status:            string(o.Status),
		Items:             string(items),
		Shipping:          string(shipping),
		PaymentMethod:     o.PaymentMethod,
		PaymentKey:        nullString(o.PaymentKey),
		Subtotal:          o.Subtotal,
		ShippingFee:       o.ShippingFee,
		DiscountAmount:    o.DiscountAmount,
		CouponID:          nullString(o.CouponID),
		TotalAmount:       o.TotalAmount,
		TrackingCarrier:   o.TrackingCarrier,
		TrackingNumber:    o.TrackingNumber,
		CancelReason:      o.CancelReason,
		CancelRequestedAt: o.CancelRequestedAt,
		CancelledAt:       o.CancelledAt,
		ReturnReason:      o.ReturnReason,
		ReturnRequestedAt: o.ReturnRequestedAt,
		ReturnedAt:        o.ReturnedAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}, nil
}

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(m *OrderModel) (*domain.Order, error) {
	o := &domain.Order{
		ID:                m.ID,
		UserID:            m.UserID,
		OrderDate:         m.OrderDate,
		Status:            domain.State(m.Status),
		PaymentMethod:     m.PaymentMethod,
		PaymentKey:        m.PaymentKey.String,
		Subtotal:          m.Subtotal,
		ShippingFee:       m.ShippingFee,
		DiscountAmount:    m.DiscountAmount,
		CouponID:          m.CouponID.String,
		TotalAmount:       m.TotalAmount,
		TrackingCarrier:   m.TrackingCarrier,
		TrackingNumber:    m.TrackingNumber,
		CancelReason:      m.CancelReason,
		CancelRequestedAt: m.CancelRequestedAt,
		CancelledAt:       m.CancelledAt,
		ReturnReason:      m.ReturnReason,
		ReturnRequestedAt: m.ReturnRequestedAt,
		ReturnedAt:        m.ReturnedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Items), &o.Items); err != nil {
		return nil, errors.Wrapf(err, "unmarshal items of order %s", m.ID)
	}
	if m.Shipping != "" {
		if err := json.Unmarshal([]byte(m.Shipping), &o.Shipping); err != nil {
			return nil, errors.Wrapf(err, "unmarshal shipping of order %s", m.ID)
		}
	}
	return o, nil
}

func ToDomainProduct(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Stock:     m.Stock,
		Sales:     m.Sales,
		Status:    domain.ProductStatus(m.Status),
		Brand:     m.Brand,
		UpdatedAt: m.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
