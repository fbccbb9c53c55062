package infrastructure

import (
	"database/sql"
	"strings"
	"time"

	"storefront/internal/service/inquiry/domain"
)

// InquiryModel 对应 inquiries 表
type InquiryModel struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)"`
	UserID       string         `gorm:"type:varchar(36);index"`
	Category     string         `gorm:"type:varchar(32)"`
	Title        string
	Content      string         `gorm:"type:text"`
	ProductID    sql.NullString `gorm:"type:varchar(36)"`
	Brand        string         `gorm:"type:varchar(64)"`
	SMSOptIn     bool           `gorm:"column:sms_opt_in"`
	VIPLevel     int            `gorm:"column:vip_level"`
	Score        int
	Priority     string `gorm:"type:varchar(8);index"`
	MatchedRules string
	Status       string `gorm:"type:varchar(16)"`
	CreatedAt    time.Time
}

func (InquiryModel) TableName() string {
	return "inquiries"
}

func FromDomainInquiry(i *domain.Inquiry) *InquiryModel {
	return &InquiryModel{
		ID:           i.ID,
		UserID:       i.UserID,
		Category:     string(i.Category),
		Title:        i.Title,
		Content:      i.Content,
		ProductID:    sql.NullString{String: i.ProductID, Valid: i.ProductID != ""},
		Brand:        i.Brand,
		SMSOptIn:     i.SMSOptIn,
		VIPLevel:     i.VIPLevel,
		Score:        i.Score,
		Priority:     string(i.Priority),
		MatchedRules: strings.Join(i.MatchedRules, ","),
		Status:       i.Status,
		CreatedAt:    i.CreatedAt,
	}
}
