// Package auth 提供显式传递的会话对象。
// 所有业务操作都接收一个 Session 参数，不读取任何全局"当前用户"状态。
package auth

import "context"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Session 是一次请求的调用者身份
type Session struct {
	UserID string
	Role   string
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Owns 判断调用者是否是资源的拥有者（管理员视为拥有所有资源）。
func (s Session) Owns(userID string) bool {
	return s.IsAdmin() || (s.UserID != "" && s.UserID == userID)
}

type sessionKey struct{}

// WithSession 仅供 HTTP 中间件把解析出的会话交给 handler，业务层不从 context 读取会话。
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
