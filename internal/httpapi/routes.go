package httpapi

import (
	"github.com/gin-gonic/gin"

	"qrattend/internal/auth"
)

// Routes registers the v1 API. Student-facing endpoints are public; lesson
// management requires a teacher bearer token.
func Routes(r gin.IRouter, h *Handler) {
	v1 := r.Group("/v1")

	v1.POST("/teachers/register", h.Register)
	v1.POST("/teachers/login", h.Login)
	v1.POST("/teachers/refresh", h.Refresh)
	v1.POST("/teachers/logout", h.Logout)

	v1.GET("/lessons/:id", h.GetLesson)
	v1.POST("/attendances", h.TakeAttendance)

	authed := v1.Group("", auth.TeacherAuth(h.authCfg.SigningKey, h.authCfg.Issuer))
	authed.POST("/lessons", h.CreateLesson)
	authed.GET("/lessons", h.ListLessons)
	authed.DELETE("/lessons/:id", h.DeleteLesson)
	authed.POST("/lessons/:id/invalidate", h.InvalidateLesson)
	authed.GET("/lessons/:id/attendances", h.ListAttendance)
}
