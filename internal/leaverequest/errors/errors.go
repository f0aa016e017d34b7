package leaverequesterrors

import (
	"net/http"

	"leaveflow/internal/shared/apperror"
)

var (
	ErrInvalidRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"dates must be in YYYY-MM-DD format",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"end date must not be before start date",
		http.StatusBadRequest,
	)
	ErrInvalidDuration = apperror.New(
		apperror.CodeInvalidInput,
		"duration must be full_day, half_day_am, half_day_pm or custom_hours",
		http.StatusBadRequest,
	)
	ErrCustomHoursRequired = apperror.New(
		apperror.CodeInvalidInput,
		"custom_start_time and custom_end_time are required for custom_hours",
		http.StatusBadRequest,
	)
	ErrInvalidCustomHours = apperror.New(
		apperror.CodeInvalidInput,
		"custom hours must be a valid HH:MM window with end after start",
		http.StatusBadRequest,
	)
	ErrLeaveTypeInactive = apperror.New(
		apperror.CodeUnprocessable,
		"leave type is not active",
		http.StatusUnprocessableEntity,
	)
	ErrNotEligible = apperror.New(
		apperror.CodeUnprocessable,
		"requester is not eligible for this leave type",
		http.StatusUnprocessableEntity,
	)
	ErrMedicalCertRequired = apperror.New(
		apperror.CodeUnprocessable,
		"a medical certificate attachment is required for this duration",
		http.StatusUnprocessableEntity,
	)
	ErrLeaveOverlap = apperror.New(
		apperror.CodeConflict,
		"an active leave request already covers part of this period",
		http.StatusConflict,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidState,
		"action is not allowed in the request's current status",
		http.StatusConflict,
	)
	ErrUnauthorizedActor = apperror.New(
		apperror.CodeForbidden,
		"actor is not allowed to perform this action",
		http.StatusForbidden,
	)
	ErrCommentsRequired = apperror.New(
		apperror.CodeInvalidInput,
		"comments are required when rejecting",
		http.StatusBadRequest,
	)
	ErrAppealReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"appeal reason is required",
		http.StatusBadRequest,
	)
	ErrCancellationReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"cancellation reason is required",
		http.StatusBadRequest,
	)
	ErrConcurrentUpdate = apperror.New(
		apperror.CodeConflict,
		"leave request was modified by another operation, retry",
		http.StatusConflict,
	)
)
