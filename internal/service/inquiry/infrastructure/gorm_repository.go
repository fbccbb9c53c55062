package infrastructure

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/database"
	"storefront/internal/service/inquiry/domain"
)

// GormInquiryRepository 是 InquiryRepository 的 GORM 实现
type GormInquiryRepository struct {
	db *gorm.DB
}

func NewGormInquiryRepository(db *gorm.DB) *GormInquiryRepository {
	return &GormInquiryRepository{db: db}
}

func (r *GormInquiryRepository) Create(ctx context.Context, inquiry *domain.Inquiry) error {
	if err := database.Conn(ctx, r.db).Create(FromDomainInquiry(inquiry)).Error; err != nil {
		return apperr.Store("inquiries.insert", err)
	}
	return nil
}
