package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("token 缺失")
	ErrTokenInvalid = errors.New("token 无效或已过期")
	ErrTokenRevoked = errors.New("token 已注销")
)

// Verifier 令牌校验
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Denylist 已注销令牌查询，按签名索引
type Denylist interface {
	IsDenied(ctx context.Context, signature string) (bool, error)
}

type TokenVerifier struct {
	secret   []byte
	denylist Denylist
}

// NewTokenVerifier denylist 为 nil 时不查黑名单
func NewTokenVerifier(secret string, denylist Denylist) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), denylist: denylist}
}

// Verify 校验签名、有效期与黑名单
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if v.denylist != nil {
		signature, err := ExtractSignature(tokenString)
		if err != nil {
			return nil, ErrTokenInvalid
		}
		denied, err := v.denylist.IsDenied(ctx, signature)
		if err != nil {
			return nil, fmt.Errorf("查询 token 黑名单失败: %w", err)
		}
		if denied {
			return nil, ErrTokenRevoked
		}
	}

	return &Identity{
		SubjectID: claims.Subject,
		Kind:      claims.Kind,
		Roles:     claims.Roles,
	}, nil
}

func (v *TokenVerifier) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	switch claims.Kind {
	case KindUser, KindMember, KindAdmin:
	default:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateToken 签发 Token，仅供测试与运维工具使用，正式签发由账号服务负责
func GenerateToken(secret string, subjectID string, kind string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Kind:  kind,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    JWTIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("签名 Token 失败: %w", err)
	}

	return tokenString, nil
}

// ExtractSignature 从 Token 字符串中提取签名
func ExtractSignature(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", errors.New("token 格式不正确")
	}
	return parts[2], nil
}
