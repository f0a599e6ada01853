package service

import (
	"Herald/internal/pkg/ws"
	"errors"
	"fmt"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid       = errors.New("参数错误")
	ErrTargetRequired     = errors.New("目标 ID 与消息内容不能为空")
	ErrSelfMessage        = errors.New("不能给自己发送消息")
	ErrGroupNotFound      = errors.New("群组不存在")
	ErrNoGroups           = errors.New("未找到任何群组")
	ErrNotGroupMember     = errors.New("不是该群组成员")
	ErrUnknownRole        = errors.New("未知的通知角色")
	ErrDispatcherNotReady = fmt.Errorf("实时推送服务未就绪: %w", ws.ErrNotInitialized)
	UnauthorizedError     = errors.New("权限不足")
	UnExpectedError       = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrTargetRequired:     BadRequest,
	ErrSelfMessage:        BadRequest,
	ErrGroupNotFound:      NotFound,
	ErrNoGroups:           NotFound,
	ErrNotGroupMember:     BadRequest,
	ErrUnknownRole:        BadRequest,
	ErrDispatcherNotReady: ServiceUnavailable,
	UnauthorizedError:     Forbidden,
	UnExpectedError:       InternalServerError,
}

// CodeOf 查找业务错误码，支持被包装的错误
func CodeOf(err error) (int, bool) {
	if code, ok := ErrorMap[err]; ok {
		return code, true
	}
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return 0, false
}
