// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态。
// 取值与存量数据中的状态字符串一致，不能修改。
type State string

const (
	StateReceived        State = "주문접수" // 已下单，尚未确认支付
	StatePaid            State = "결제완료" // 支付已确认
	StatePreparing       State = "상품준비" // 备货中
	StateShipping        State = "배송중"  // 运输中
	StateDelivered       State = "배송완료" // 已送达
	StateCancelled       State = "주문취소" // 已取消
	StateReturnRequested State = "반품신청" // 已申请退货
	StateReturnCompleted State = "반품완료" // 退货完成
)

// transitions 是允许的状态流转表。
// 正向只能逐级推进；取消只允许在支付前后；退货只能从已送达开始。
var transitions = map[State][]State{
	StateReceived:        {StatePaid, StateCancelled},
	StatePaid:            {StatePreparing, StateCancelled},
	StatePreparing:       {StateShipping},
	StateShipping:        {StateDelivered},
	StateDelivered:       {StateReturnRequested},
	StateReturnRequested: {StateReturnCompleted},
}

// AllStates 按生命周期顺序列出所有状态
var AllStates = []State{
	StateReceived, StatePaid, StatePreparing, StateShipping, StateDelivered,
	StateCancelled, StateReturnRequested, StateReturnCompleted,
}

func (s State) Valid() bool {
	for _, v := range AllStates {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo 判断 s -> to 是否合法
func (s State) CanTransitionTo(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 没有任何后续状态
func (s State) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Cancellable 取消申请和取消审批都只在这两个状态下允许
func (s State) Cancellable() bool {
	return s == StateReceived || s == StatePaid
}
