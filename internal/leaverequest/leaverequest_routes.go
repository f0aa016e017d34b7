package leaverequest

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the leave request endpoints. Role checks live in the
// service, next to the identity guards they combine with, so routes only
// carry authentication and idempotency.
func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	auth gin.HandlerFunc,
	idempotency gin.HandlerFunc,
) {
	requests := r.Group("/leave-requests")
	requests.Use(auth)
	{
		requests.GET("", handler.List)
		requests.GET("/:id", handler.Get)
		requests.POST("", idempotency, handler.Submit)
		requests.POST("/:id/manager-decision", idempotency, handler.ManagerDecision)
		requests.POST("/:id/hr-decision", idempotency, handler.HRDecision)
		requests.POST("/:id/appeal", idempotency, handler.Appeal)
		requests.POST("/:id/reopen", idempotency, handler.Reopen)
		requests.POST("/:id/cancel", idempotency, handler.Cancel)
		requests.POST("/:id/cancellation-request", idempotency, handler.RequestCancellation)
		requests.POST("/:id/cancellation-decision", idempotency, handler.CancellationDecision)
	}
}
