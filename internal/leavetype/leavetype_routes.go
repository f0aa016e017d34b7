package leavetype

import (
	"leaveflow/internal/middleware"
	"leaveflow/internal/policy"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	policyService policy.Service,
	auth gin.HandlerFunc,
) {
	types := r.Group("/leave-types")
	types.Use(auth)
	{
		types.GET("", handler.GetAll)
		types.GET("/:id", handler.GetById)
		types.POST("", middleware.Authorize(policyService, policy.ResourceLeaveType, policy.ActionManage), handler.Create)
		types.PUT("/:id", middleware.Authorize(policyService, policy.ResourceLeaveType, policy.ActionManage), handler.Update)
	}
}
