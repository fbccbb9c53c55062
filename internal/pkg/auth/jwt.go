// internal/pkg/auth/jwt.go
package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims 对应托管认证服务签发的访问令牌。
// 角色可以出现在顶层 role，也可以出现在 app_metadata.role。
type Claims struct {
	Role        string      `json:"role,omitempty"`
	AppMetadata appMetadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

type appMetadata struct {
	Role string `json:"role,omitempty"`
}

// Verifier 使用共享密钥校验 HS256 令牌
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify 解析令牌并返回会话
func (v *Verifier) Verify(token string) (Session, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Session{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return Session{}, errors.Wrap(ErrInvalidToken, "missing subject")
	}

	role := RoleCustomer
	switch {
	case claims.AppMetadata.Role == RoleAdmin, claims.Role == RoleAdmin:
		role = RoleAdmin
	}
	return Session{UserID: claims.Subject, Role: role}, nil
}
