package router

import (
	"Lee_Moments/internal/handler"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Circle       *handler.CircleHandler
	Moment       *handler.MomentHandler
	Registration *handler.RegistrationHandler
	Comment      *handler.CommentHandler
}

func InitRouter(h Handlers, auth gin.HandlerFunc) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	api.Use(auth)

	// circle 相关接口
	circleGroup := api.Group("/circles")
	{
		circleGroup.POST("", h.Circle.Create)
		circleGroup.GET("/:slug", h.Circle.Get)
		circleGroup.PUT("/:id", h.Circle.Update)
		circleGroup.DELETE("/:id", h.Circle.Delete)
		circleGroup.POST("/:id/join", h.Circle.Join)
		circleGroup.POST("/:id/leave", h.Circle.Leave)
		circleGroup.POST("/:id/follow", h.Circle.Follow)
		circleGroup.POST("/:id/unfollow", h.Circle.Unfollow)
	}

	// moment 相关接口
	momentGroup := api.Group("/moments")
	{
		momentGroup.POST("", h.Moment.Create)
		momentGroup.GET("/:id", h.Moment.Get)
		momentGroup.PUT("/:id", h.Moment.Update)
		momentGroup.DELETE("/:id", h.Moment.Delete)
		momentGroup.POST("/:id/cancel", h.Moment.Cancel)
		momentGroup.POST("/:id/register", h.Registration.Register)
		momentGroup.GET("/:id/registration", h.Registration.Mine)
		momentGroup.GET("/:id/comments", h.Comment.List)
		momentGroup.POST("/:id/comments", h.Comment.Add)
	}

	// 报名相关接口
	registrationGroup := api.Group("/registrations")
	{
		registrationGroup.POST("/:id/cancel", h.Registration.Cancel)
		registrationGroup.POST("/:id/check-in", h.Registration.CheckIn)
	}

	api.DELETE("/comments/:id", h.Comment.Delete)

	// 管理员接口
	adminGroup := api.Group("/admin")
	{
		adminGroup.POST("/moments/:id/cancel", h.Moment.AdminCancel)
	}

	return r
}
