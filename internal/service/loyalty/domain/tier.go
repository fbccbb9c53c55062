// Package domain 根据已送达订单的累计金额计算会员等级。
// 等级只在读取时计算，不做缓存也不落库。
package domain

import (
	"github.com/shopspring/decimal"

	orderdomain "storefront/internal/service/order/domain"
)

// Tier 是一个会员等级及其下限（含）
type Tier struct {
	Name string
	Min  int64
}

// Tiers 按门槛升序排列
var Tiers = []Tier{
	{Name: "FAMILY", Min: 0},
	{Name: "SILVER", Min: 5_000_000},
	{Name: "GOLD", Min: 30_000_000},
	{Name: "DIAMOND", Min: 80_000_000},
	{Name: "PRESTIGE VIP", Min: 120_000_000},
}

// TierStatus 是等级计算结果。最高等级时 NextTier 为空，进度固定为 100。
type TierStatus struct {
	Tier          string  `json:"tier"`
	Total         int64   `json:"total"`
	NextTier      string  `json:"next_tier,omitempty"`
	NextThreshold int64   `json:"next_threshold,omitempty"`
	ProgressPct   float64 `json:"progress_pct"`
}

// SumDelivered 累加 배송완료 订单的实付金额，其它状态一律不计
func SumDelivered(orders []*orderdomain.Order) int64 {
	var total int64
	for _, o := range orders {
		if o.Status == orderdomain.StateDelivered {
			total += o.TotalAmount
		}
	}
	return total
}

// ComputeTier 对订单历史计算等级，结果与订单顺序无关
func ComputeTier(orders []*orderdomain.Order) TierStatus {
	return TierForTotal(SumDelivered(orders))
}

func TierForTotal(total int64) TierStatus {
	idx := 0
	for i, t := range Tiers {
		if total >= t.Min {
			idx = i
		}
	}
	current := Tiers[idx]
	status := TierStatus{Tier: current.Name, Total: total}
	if idx == len(Tiers)-1 {
		status.ProgressPct = 100
		return status
	}

	next := Tiers[idx+1]
	status.NextTier = next.Name
	status.NextThreshold = next.Min
	status.ProgressPct = progress(total, current.Min, next.Min)
	return status
}

// progress 保留一位小数，并限制在 [0, 100]
func progress(total, lower, upper int64) float64 {
	pct := decimal.NewFromInt(total - lower).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(upper - lower)).
		Round(1)
	pct = decimal.Max(decimal.Zero, decimal.Min(pct, decimal.NewFromInt(100)))
	return pct.InexactFloat64()
}
