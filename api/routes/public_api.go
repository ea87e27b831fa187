package routes

import (
	"matchlink/api/handlers"
	"matchlink/api/middleware"
	"matchlink/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine, registry *services.PresenceRegistry) *gin.RouterGroup {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", handlers.Register)
		publicEndpoints.POST("auth/login", handlers.Login)
	}

	wsHandler := handlers.NewWSHandler(registry,
		services.NewChatService(services.NewUserService()),
		services.NewUserService())

	authorized := router.Group("/api/v1/")
	authorized.Use(middleware.AuthMiddleware())
	{
		authorized.POST("auth/logout", handlers.Logout)
		authorized.GET("user/get/:id", handlers.UserGet)
		authorized.GET("user/search", handlers.UserSearch)

		// Связи
		authorized.POST("friends/request/:user_id", handlers.SendRequest)
		authorized.POST("friends/accept/:id", handlers.AcceptRequest)
		authorized.POST("friends/reject/:id", handlers.RejectRequest)
		authorized.DELETE("friends/cancel/:id", handlers.CancelRequest)
		authorized.POST("friends/block/:user_id", handlers.BlockUser)
		authorized.DELETE("friends/unblock/:user_id", handlers.UnblockUser)
		authorized.DELETE("friends/remove/:user_id", handlers.RemoveFriend)
		authorized.GET("friends/list", handlers.ListFriends)
		authorized.GET("friends/requests", handlers.ListPendingRequests)
		authorized.GET("friends/sent", handlers.ListSentRequests)
		authorized.GET("friends/blocked", handlers.ListBlockedUsers)

		// Сообщения
		authorized.POST("chat/messages", handlers.SendMessage)
		authorized.GET("chat/messages/:user_id", handlers.GetConversation)
		authorized.GET("counters", handlers.GetCounters)
	}

	// Аутентификация рукопожатия выполняется внутри обработчика,
	// а не в middleware: credential может прийти параметром запроса
	router.GET("/api/v1/ws", wsHandler.Handle)

	return publicEndpoints
}
