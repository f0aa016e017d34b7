package leaverequest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leaveflow/internal/directory"
	"leaveflow/internal/events"
	"leaveflow/internal/leavebalance"
	leaverequesterrors "leaveflow/internal/leaverequest/errors"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/policy"
	"leaveflow/internal/shared/contextutil"
	"leaveflow/internal/shared/counter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

const requestNumberCounter = "leave_request"

//go:generate mockgen -source=leaverequest_service.go -destination=mock/leaverequest_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, actorID string, req SubmitLeaveRequest) (LeaveRequestResponse, error)
	Get(ctx context.Context, actorID, id string) (LeaveRequestResponse, error)
	List(ctx context.Context, actorID string, filter ListFilter) ([]LeaveRequestResponse, int64, error)
	ManagerDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error)
	HRDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error)
	Appeal(ctx context.Context, actorID, id string, req AppealRequest) (LeaveRequestResponse, error)
	Reopen(ctx context.Context, actorID, id string) (LeaveRequestResponse, error)
	Cancel(ctx context.Context, actorID, id string) (LeaveRequestResponse, error)
	RequestCancellation(ctx context.Context, actorID, id string, req CancellationRequest) (LeaveRequestResponse, error)
	DecideCancellation(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	types    leavetype.Registry
	ledger   leavebalance.Ledger
	dir      directory.Directory
	policies policy.Service
	counter  counter.Repository
	outbox   kafka.OutboxRepository
	days     DayCounter
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	types leavetype.Registry,
	ledger leavebalance.Ledger,
	dir directory.Directory,
	policies policy.Service,
	counterRepo counter.Repository,
	outbox kafka.OutboxRepository,
	days DayCounter,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leaverequest.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leaverequest.service")
	}
	if days == nil {
		days = CalendarDayCounter{}
	}
	return &service{
		db:       db,
		repo:     repo,
		types:    types,
		ledger:   ledger,
		dir:      dir,
		policies: policies,
		counter:  counterRepo,
		outbox:   outbox,
		days:     days,
		logger:   l,
	}
}

func (s *service) Submit(ctx context.Context, actorID string, req SubmitLeaveRequest) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("submit leave request",
		zap.String("request_id", rid),
		zap.String("actor_id", actorID),
		zap.String("leave_type_id", req.LeaveTypeID),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidActorID
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateFormat
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateFormat
	}
	if endDate.Before(startDate) {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateRange
	}

	duration := Duration(req.Duration)
	if duration == "" {
		duration = DurationFullDay
	}

	user, err := s.dir.GetUser(ctx, actorID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	lt, err := s.types.GetByID(ctx, req.LeaveTypeID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if !lt.IsActive {
		return LeaveRequestResponse{}, leaverequesterrors.ErrLeaveTypeInactive
	}
	if !lt.EligibleForGender(user.Gender) {
		s.logger.Warn("submit rejected by gender eligibility",
			zap.String("actor_id", actorID),
			zap.String("leave_type_code", lt.Code),
		)
		return LeaveRequestResponse{}, leaverequesterrors.ErrNotEligible
	}

	totalDays, err := computeTotalDays(s.days, duration, startDate, endDate, req.CustomStartTime, req.CustomEndTime)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	if lt.RequiresMedicalCert && totalDays.GreaterThan(lt.MedicalCertDaysThreshold) && req.AttachmentRef == nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrMedicalCertRequired
	}

	overlaps, err := s.repo.HasOverlappingRequest(ctx, actorID, req.StartDate, req.EndDate, "")
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if overlaps {
		return LeaveRequestResponse{}, leaverequesterrors.ErrLeaveOverlap
	}

	// Snapshot the reporting line now; later org changes must not reroute
	// this request.
	managerID := user.ManagerID

	status := StatusPendingManager
	if !lt.RequiresManagerApproval || lt.SkipsManagerFor(user.Role) || managerID == nil {
		status = StatusPendingHR
	}

	seq, err := s.counter.GetNextValue(ctx, requestNumberCounter)
	if err != nil {
		s.logger.Error("submit request number allocation failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	lr := &LeaveRequest{
		ID:                    uuid.New(),
		RequestNumber:         fmt.Sprintf("LR-%06d", seq),
		UserID:                actorUUID,
		LeaveTypeID:           lt.ID,
		StartDate:             startDate,
		EndDate:               endDate,
		Duration:              duration,
		CustomStartTime:       req.CustomStartTime,
		CustomEndTime:         req.CustomEndTime,
		TotalDays:             totalDays,
		Reason:                req.Reason,
		AttachmentRef:         req.AttachmentRef,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		AvailabilityTag:       req.AvailabilityTag,
		Status:                status,
		Version:               1,
		ManagerID:             managerID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Insert(ctx, lr); err != nil {
		s.logger.Error("submit persist failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if err := s.queueEvent(ctx, tx, lr, lt.Code, events.LeaveRequestSubmitted, actorID, ""); err != nil {
		return LeaveRequestResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("leave request submitted",
		zap.String("leave_request_id", lr.ID.String()),
		zap.String("request_number", lr.RequestNumber),
		zap.String("status", string(lr.Status)),
		zap.String("total_days", lr.TotalDays.String()),
	)
	return mapRequestToResponse(*lr), nil
}

func (s *service) Get(ctx context.Context, actorID, id string) (LeaveRequestResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidRequestID
	}

	lr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}

	if err := s.authorizeView(ctx, actorID, lr); err != nil {
		return LeaveRequestResponse{}, err
	}
	return mapRequestToResponse(*lr), nil
}

func (s *service) List(ctx context.Context, actorID string, filter ListFilter) ([]LeaveRequestResponse, int64, error) {
	actor, err := s.dir.GetUser(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	privileged := actor.Role == directory.RoleHR || actor.Role == directory.RoleAdmin
	if !privileged {
		if filter.UserID != "" && filter.UserID != actorID {
			return nil, 0, leaverequesterrors.ErrUnauthorizedActor
		}
		filter.UserID = actorID
	}

	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]LeaveRequestResponse, len(requests))
	for i, lr := range requests {
		resp[i] = mapRequestToResponse(lr)
	}
	return resp, total, nil
}

func (s *service) ManagerDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error) {
	action := ActionManagerReject
	if req.Approve {
		action = ActionManagerApprove
	}
	if !req.Approve && req.Comments == "" {
		return LeaveRequestResponse{}, leaverequesterrors.ErrCommentsRequired
	}

	return s.transition(ctx, actorID, id, action, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		isManager := t.request.ManagerID != nil && t.request.ManagerID.String() == actorID
		if !isManager {
			allowed, err := s.policies.Authorize(ctx, t.actor.Role, policy.ResourceLeaveRequest, policy.ActionManagerDecide, t.leaveType.CanApproveRoles)
			if err != nil {
				return err
			}
			if !allowed {
				return leaverequesterrors.ErrUnauthorizedActor
			}
		}

		now := time.Now().UTC()
		actorUUID := t.actor.ID
		t.request.ManagerDecidedBy = &actorUUID
		t.request.ManagerDecidedAt = &now
		if req.Comments != "" {
			t.request.ManagerComments = &req.Comments
		}

		if !req.Approve {
			t.request.Status = StatusRejectedByManager
			t.eventType = events.LeaveRequestManagerRejected
			return nil
		}

		t.eventType = events.LeaveRequestManagerApproved
		if t.leaveType.RequiresHRApproval {
			t.request.Status = StatusPendingHR
			return nil
		}

		// Manager approval is final for this leave type: reserve now, in
		// the same transaction as the status write.
		t.request.Status = StatusApproved
		_, err := s.ledger.ReserveTx(ctx, tx, t.request.UserID.String(), t.request.LeaveTypeID.String(), t.request.BalanceYear(), t.request.TotalDays)
		return err
	}, req.Comments)
}

func (s *service) HRDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error) {
	action := ActionHRReject
	if req.Approve {
		action = ActionHRApprove
	}
	if !req.Approve && req.Comments == "" {
		return LeaveRequestResponse{}, leaverequesterrors.ErrCommentsRequired
	}

	return s.transition(ctx, actorID, id, action, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		allowed, err := s.policies.Authorize(ctx, t.actor.Role, policy.ResourceLeaveRequest, policy.ActionHRDecide, t.leaveType.CanApproveRoles)
		if err != nil {
			return err
		}
		if !allowed {
			return leaverequesterrors.ErrUnauthorizedActor
		}

		now := time.Now().UTC()
		actorUUID := t.actor.ID
		t.request.HRDecidedBy = &actorUUID
		t.request.HRDecidedAt = &now
		if req.Comments != "" {
			t.request.HRComments = &req.Comments
		}

		if !req.Approve {
			t.request.Status = StatusRejectedByHR
			t.eventType = events.LeaveRequestHRRejected
			return nil
		}

		// The reservation and the approved status commit together; an
		// insufficient balance rolls both back and the request stays pending.
		if _, err := s.ledger.ReserveTx(ctx, tx, t.request.UserID.String(), t.request.LeaveTypeID.String(), t.request.BalanceYear(), t.request.TotalDays); err != nil {
			return err
		}
		t.request.Status = StatusApproved
		t.eventType = events.LeaveRequestHRApproved
		return nil
	}, req.Comments)
}

func (s *service) Appeal(ctx context.Context, actorID, id string, req AppealRequest) (LeaveRequestResponse, error) {
	if req.Reason == "" {
		return LeaveRequestResponse{}, leaverequesterrors.ErrAppealReasonRequired
	}

	return s.transition(ctx, actorID, id, ActionAppeal, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		if t.request.UserID.String() != actorID {
			return leaverequesterrors.ErrUnauthorizedActor
		}

		now := time.Now().UTC()
		t.request.Status = StatusAppealed
		t.request.AppealReason = &req.Reason
		t.request.AppealedAt = &now
		t.eventType = events.LeaveRequestAppealed
		return nil
	}, req.Reason)
}

func (s *service) Reopen(ctx context.Context, actorID, id string) (LeaveRequestResponse, error) {
	return s.transition(ctx, actorID, id, ActionReopen, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		allowed, err := s.policies.Authorize(ctx, t.actor.Role, policy.ResourceLeaveRequest, policy.ActionReopen, nil)
		if err != nil {
			return err
		}
		if !allowed {
			return leaverequesterrors.ErrUnauthorizedActor
		}

		// Appeals re-enter the flow at the HR stage regardless of where the
		// rejection happened.
		t.request.Status = StatusPendingHR
		t.eventType = events.LeaveRequestAppealReopened
		return nil
	}, "")
}

func (s *service) Cancel(ctx context.Context, actorID, id string) (LeaveRequestResponse, error) {
	return s.transition(ctx, actorID, id, ActionCancelOwn, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		if t.request.UserID.String() != actorID {
			return leaverequesterrors.ErrUnauthorizedActor
		}

		// Nothing was reserved yet, so there is nothing to release.
		t.request.Status = StatusCancelled
		t.eventType = events.LeaveRequestCancelled
		return nil
	}, "")
}

func (s *service) RequestCancellation(ctx context.Context, actorID, id string, req CancellationRequest) (LeaveRequestResponse, error) {
	if req.Reason == "" {
		return LeaveRequestResponse{}, leaverequesterrors.ErrCancellationReasonRequired
	}

	return s.transition(ctx, actorID, id, ActionRequestCancellation, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		if t.request.UserID.String() != actorID {
			return leaverequesterrors.ErrUnauthorizedActor
		}

		now := time.Now().UTC()
		t.request.Status = StatusPendingCancellation
		t.request.CancellationReason = &req.Reason
		t.request.CancellationRequestedAt = &now
		t.eventType = events.LeaveRequestCancellationRequested
		return nil
	}, req.Reason)
}

func (s *service) DecideCancellation(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error) {
	action := ActionRejectCancellation
	if req.Approve {
		action = ActionApproveCancellation
	}
	if !req.Approve && req.Comments == "" {
		return LeaveRequestResponse{}, leaverequesterrors.ErrCommentsRequired
	}

	return s.transition(ctx, actorID, id, action, func(ctx context.Context, tx *sql.Tx, t *transitionState) error {
		allowed, err := s.policies.Authorize(ctx, t.actor.Role, policy.ResourceLeaveRequest, policy.ActionCancellationDecide, nil)
		if err != nil {
			return err
		}
		if !allowed {
			return leaverequesterrors.ErrUnauthorizedActor
		}

		now := time.Now().UTC()
		actorUUID := t.actor.ID
		t.request.CancellationDecidedBy = &actorUUID
		t.request.CancellationDecidedAt = &now
		if req.Comments != "" {
			t.request.CancellationHRComments = &req.Comments
		}

		if !req.Approve {
			t.request.Status = StatusApproved
			t.eventType = events.LeaveRequestCancellationRejected
			return nil
		}

		// The reservation made at approval is handed back in the same
		// transaction that records the cancellation.
		if _, err := s.ledger.ReleaseTx(ctx, tx, t.request.UserID.String(), t.request.LeaveTypeID.String(), t.request.BalanceYear(), t.request.TotalDays); err != nil {
			return err
		}
		t.request.Status = StatusCancelled
		t.eventType = events.LeaveRequestCancelled
		return nil
	}, req.Comments)
}

// transitionState is the working set a transition callback operates on.
type transitionState struct {
	request   *LeaveRequest
	leaveType *leavetype.LeaveType
	actor     *directory.User
	eventType string
}

// transition is the shared skeleton of every state change: lock the row,
// check the action against the status table, let the callback mutate and
// authorize, then persist the new status and queue its event atomically.
func (s *service) transition(
	ctx context.Context,
	actorID, id string,
	action Action,
	apply func(ctx context.Context, tx *sql.Tx, t *transitionState) error,
	comments string,
) (LeaveRequestResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidRequestID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidActorID
	}

	actor, err := s.dir.GetUser(ctx, actorID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	lr, err := qtx.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}

	if !actionAllowed(lr.Status, action) {
		s.logger.Warn("invalid transition attempted",
			zap.String("leave_request_id", id),
			zap.String("status", string(lr.Status)),
			zap.String("action", string(action)),
			zap.String("actor_id", actorID),
		)
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidTransition
	}

	lt, err := s.types.GetByID(ctx, lr.LeaveTypeID.String())
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	state := &transitionState{request: lr, leaveType: lt, actor: actor}
	if err := apply(ctx, tx, state); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := qtx.Update(ctx, lr); err != nil {
		s.logger.Error("transition persist failed",
			zap.String("leave_request_id", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return LeaveRequestResponse{}, err
	}

	if err := s.queueEvent(ctx, tx, lr, lt.Code, state.eventType, actorID, comments); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("leave request transition",
		zap.String("leave_request_id", lr.ID.String()),
		zap.String("request_number", lr.RequestNumber),
		zap.String("action", string(action)),
		zap.String("status", string(lr.Status)),
		zap.String("actor_id", actorID),
	)
	return mapRequestToResponse(*lr), nil
}

func (s *service) authorizeView(ctx context.Context, actorID string, lr *LeaveRequest) error {
	if lr.UserID.String() == actorID {
		return nil
	}
	if lr.ManagerID != nil && lr.ManagerID.String() == actorID {
		return nil
	}

	actor, err := s.dir.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role == directory.RoleHR || actor.Role == directory.RoleAdmin {
		return nil
	}
	return leaverequesterrors.ErrUnauthorizedActor
}

func (s *service) queueEvent(ctx context.Context, tx *sql.Tx, lr *LeaveRequest, leaveTypeCode, eventType, actorID, comments string) error {
	evt := events.LeaveRequestEvent{
		EventType:      eventType,
		RequestID:      contextutil.GetRequestID(ctx),
		LeaveRequestID: lr.ID.String(),
		RequestNumber:  lr.RequestNumber,
		UserID:         lr.UserID.String(),
		LeaveTypeID:    lr.LeaveTypeID.String(),
		LeaveTypeCode:  leaveTypeCode,
		Status:         string(lr.Status),
		TotalDays:      lr.TotalDays.String(),
		ActorID:        actorID,
		Comments:       comments,
		OccurredAt:     time.Now().UTC(),
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	outboxEvent := kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     evt.RequestID,
		AggregateType: "leave_request",
		AggregateID:   lr.ID.String(),
		EventType:     eventType,
		Topic:         events.LeaveRequestTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}
	if err := kafka.ValidateOutboxEvent(outboxEvent); err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, outboxEvent)
}

func mapRequestToResponse(lr LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:              lr.ID.String(),
		RequestNumber:   lr.RequestNumber,
		UserID:          lr.UserID.String(),
		LeaveTypeID:     lr.LeaveTypeID.String(),
		StartDate:       lr.StartDate.Format(dateLayout),
		EndDate:         lr.EndDate.Format(dateLayout),
		Duration:        string(lr.Duration),
		CustomStartTime: lr.CustomStartTime,
		CustomEndTime:   lr.CustomEndTime,
		TotalDays:       lr.TotalDays.String(),
		Reason:          lr.Reason,
		AttachmentRef:   lr.AttachmentRef,
		Status:          string(lr.Status),

		ManagerComments:        lr.ManagerComments,
		HRComments:             lr.HRComments,
		AppealReason:           lr.AppealReason,
		CancellationReason:     lr.CancellationReason,
		CancellationHRComments: lr.CancellationHRComments,

		CreatedAt: lr.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: lr.UpdatedAt.UTC().Format(time.RFC3339),
	}

	resp.ManagerID = uuidString(lr.ManagerID)
	resp.ManagerDecidedBy = uuidString(lr.ManagerDecidedBy)
	resp.HRDecidedBy = uuidString(lr.HRDecidedBy)
	resp.CancellationDecidedBy = uuidString(lr.CancellationDecidedBy)

	resp.ManagerDecidedAt = timeString(lr.ManagerDecidedAt)
	resp.HRDecidedAt = timeString(lr.HRDecidedAt)
	resp.AppealedAt = timeString(lr.AppealedAt)
	resp.CancellationDecidedAt = timeString(lr.CancellationDecidedAt)

	return resp
}

func uuidString(v *uuid.UUID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func timeString(v *time.Time) *string {
	if v == nil {
		return nil
	}
	s := v.UTC().Format(time.RFC3339)
	return &s
}
