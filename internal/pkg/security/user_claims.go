package security

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KindUser   = "user"
	KindMember = "member"
	KindAdmin  = "admin"
)

const (
	JWTIssuer         = "Herald"
	JWTExpirationTime = time.Hour * 24
)

// Claims Token 中携带的身份信息，subject 为用户 / 成员 / 管理员 ID
type Claims struct {
	Kind  string   `json:"kind"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Identity 校验通过后的调用方身份
type Identity struct {
	SubjectID string
	Kind      string
	Roles     []string
}

// IsAdmin 管理员身份或带 admin 角色
func (i *Identity) IsAdmin() bool {
	return i.Kind == KindAdmin || slices.Contains(i.Roles, KindAdmin)
}

// AllRoles 角色列表，包含身份类型本身
func (i *Identity) AllRoles() []string {
	roles := make([]string, 0, len(i.Roles)+1)
	roles = append(roles, i.Kind)
	for _, r := range i.Roles {
		if r != i.Kind {
			roles = append(roles, r)
		}
	}
	return roles
}
