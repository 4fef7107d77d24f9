package http

import "github.com/gin-gonic/gin"

func RegisterUserRoutes(r *gin.Engine, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.POST("/", handler.CreateUser)
		users.GET("/check-email", handler.CheckEmail)
		users.GET("/:id", handler.GetUser)
		users.GET("/", handler.ListUsers)
		users.PUT("/:id", handler.UpdateProfile)
		users.DELETE("/:id", handler.WithdrawUser)
		users.PATCH("/:id/suspend", handler.SuspendUser)
		users.PATCH("/:id/activate", handler.ActivateUser)
		users.PATCH("/:id/deactivate", handler.DeactivateUser)
	}
}
