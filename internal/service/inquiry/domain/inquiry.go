package domain

import (
	"context"
	"time"
)

// Category 是客服咨询的分类
type Category string

const (
	CategoryPaymentOrder Category = "payment/order"
	CategoryShipping     Category = "shipping"
	CategoryProduct      Category = "product"
	CategoryAccount      Category = "account"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPaymentOrder, CategoryShipping, CategoryProduct, CategoryAccount:
		return true
	}
	return false
}

// Priority 是分诊结果
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	highPriorityScore   = 5
	mediumPriorityScore = 2
)

// PriorityFor 把分数映射为优先级，阈值固定不随规则配置变化
func PriorityFor(score int) Priority {
	switch {
	case score >= highPriorityScore:
		return PriorityHigh
	case score >= mediumPriorityScore:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// VIP 等级门槛，与会员等级是两套独立的标准
var vipThresholds = []struct {
	min   int64
	level int
}{
	{5_000_000, 3},
	{3_000_000, 2},
	{1_000_000, 1},
}

// VIPLevel 根据已送达订单的累计金额返回 0~3
func VIPLevel(deliveredTotal int64) int {
	for _, t := range vipThresholds {
		if deliveredTotal >= t.min {
			return t.level
		}
	}
	return 0
}

const StatusOpen = "open"

// Inquiry 是一条客服咨询及其分诊结果
type Inquiry struct {
	ID           string
	UserID       string
	Category     Category
	Title        string
	Content      string
	ProductID    string
	Brand        string
	SMSOptIn     bool
	VIPLevel     int
	Score        int
	Priority     Priority
	MatchedRules []string
	Status       string
	CreatedAt    time.Time
}

// Fact 是规则引擎的输入。SubmittedAt 必须已经转换到业务时区。
type Fact struct {
	Category    Category
	Text        string
	Brand       string
	VIPLevel    int
	SMSOptIn    bool
	SubmittedAt time.Time
}

// Scoring 是规则引擎的输出
type Scoring struct {
	Score        int
	MatchedRules []string
}

// RuleEngine 对一条咨询打分
type RuleEngine interface {
	Evaluate(f Fact) (Scoring, error)
}

// Triage 打分并写回咨询
func (i *Inquiry) Triage(engine RuleEngine, submittedAt time.Time) error {
	s, err := engine.Evaluate(Fact{
		Category:    i.Category,
		Text:        i.Title + "\n" + i.Content,
		Brand:       i.Brand,
		VIPLevel:    i.VIPLevel,
		SMSOptIn:    i.SMSOptIn,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		return err
	}
	i.Score = s.Score
	i.Priority = PriorityFor(s.Score)
	i.MatchedRules = s.MatchedRules
	return nil
}

// InquiryRepository 只需要插入
type InquiryRepository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
}
