package api

import "Herald/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	WsHandler           *handler.WsHandler
	IMHandler           *handler.IMHandler
	NotificationHandler *handler.NotificationHandler
	GroupHandler        *handler.GroupHandler
}
