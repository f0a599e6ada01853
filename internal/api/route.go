package api

import (
	"Herald/internal/api/middleware"
	"Herald/internal/pkg/logger"
	"Herald/internal/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, verifier security.Verifier, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(allowedOrigins))
	logger.SetupGin(r)

	auth := middleware.AuthMiddleware(verifier)
	adminOnly := middleware.CheckRoles(security.KindAdmin)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		imGroup := apiGroup.Group("/im")
		{
			// 网关自行完成握手鉴权
			imGroup.GET("", group.WsHandler.Connect)

			authGroup := imGroup.Group("")
			authGroup.Use(auth, middleware.CheckRoles(security.KindUser))
			{
				authGroup.POST("/send", group.IMHandler.SendMessage)
				authGroup.GET("/history", group.IMHandler.GetChatHistory)
				authGroup.GET("/contacts", group.IMHandler.GetContacts)
				authGroup.GET("/unread", group.IMHandler.GetUnreadCounts)
			}
		}

		notificationGroup := apiGroup.Group("/notification")
		notificationGroup.Use(auth)
		{
			notificationGroup.GET("/:user_id", group.NotificationHandler.GetUserNotifications)
			notificationGroup.GET("/member/:member_id", group.NotificationHandler.GetMemberNotifications)

			adminGroup := notificationGroup.Group("")
			adminGroup.Use(adminOnly)
			{
				adminGroup.POST("", group.NotificationHandler.NotifyUser)
				adminGroup.POST("/member", group.NotificationHandler.NotifyMember)
			}
		}

		groupGroup := apiGroup.Group("/group")
		groupGroup.Use(auth)
		{
			groupGroup.GET("/messages", middleware.CheckRoles(security.KindUser), group.GroupHandler.GetMyGroupMessages)

			adminGroup := groupGroup.Group("")
			adminGroup.Use(adminOnly)
			{
				adminGroup.POST("/notify", group.GroupHandler.NotifyAllGroups)
				adminGroup.POST("/:group_id/notify", group.GroupHandler.NotifyGroup)
				adminGroup.GET("/notifications", group.GroupHandler.GetGroupNotifications)
			}
		}
	}

	return r
}
