package leavebalance

import (
	"net/http"
	"strconv"
	"time"

	"leaveflow/internal/directory"
	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leavebalance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavebalance.handler")
	}
	return &Handler{service: service, logger: l}
}

func getActorID(c *gin.Context) string {
	return c.GetString("user_id_validated")
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("leave balance request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// canViewBalance limits reads to the owner; HR and admins may read anyone's.
func canViewBalance(c *gin.Context, userID string) bool {
	if userID == getActorID(c) {
		return true
	}
	role := c.GetString("role")
	return role == directory.RoleHR || role == directory.RoleAdmin
}

func (h *Handler) Get(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		// Default to the caller's own balance.
		userID = getActorID(c)
	}
	if !canViewBalance(c, userID) {
		response.Error(c, http.StatusForbidden, apperror.CodeForbidden, "you may only view your own balance", nil)
		return
	}
	leaveTypeID := c.Query("leave_type_id")

	year := time.Now().UTC().Year()
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "year must be a number", nil)
			return
		}
		year = parsed
	}

	resp, err := h.service.Get(c.Request.Context(), userID, leaveTypeID, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, mapped.Status, mapped.Code, mapped.Message, nil)
		return
	}

	resp, err := h.service.Adjust(c.Request.Context(), getActorID(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) CarryOver(c *gin.Context) {
	fromYear := time.Now().UTC().Year() - 1
	if v := c.Query("from_year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "from_year must be a number", nil)
			return
		}
		fromYear = parsed
	}

	summary, err := h.service.CarryOver(c.Request.Context(), fromYear)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary, nil)
}
