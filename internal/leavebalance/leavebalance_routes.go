package leavebalance

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
	balances := r.Group("/leave-balances")
	balances.Use(auth)
	{
		balances.GET("", handler.Get)
		balances.POST("/adjust", middleware.Authorize(policyService, policy.ResourceLeaveBalance, policy.ActionAdjust), handler.Adjust)
		balances.POST("/carry-over", middleware.Authorize(policyService, policy.ResourceLeaveBalance, policy.ActionCarryOver), handler.CarryOver)
	}
}
