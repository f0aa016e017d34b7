package leavetype

import (
	"context"
	"errors"

	leavetypeerrors "leaveflow/internal/leavetype/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry is the read-only view the workflow components consume.
type Registry interface {
	GetByID(ctx context.Context, id string) (*LeaveType, error)
	GetByCode(ctx context.Context, code string) (*LeaveType, error)
}

//go:generate mockgen -source=leavetype_service.go -destination=mock/leavetype_service_mock.go -package=mock
type Service interface {
	Registry
	Create(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
	GetAll(ctx context.Context) ([]LeaveTypeResponse, error)
	Update(ctx context.Context, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("leavetype.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavetype.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) GetByID(ctx context.Context, id string) (*LeaveType, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, leavetypeerrors.ErrInvalidLeaveTypeID
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leavetypeerrors.ErrLeaveTypeNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*LeaveType, error) {
	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leavetypeerrors.ErrLeaveTypeNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *service) Create(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error) {
	s.logger.Debug("create leave type requested", zap.String("code", req.Code))

	t, err := buildLeaveType(req)
	if err != nil {
		s.logger.Warn("create leave type validation failed", zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("create leave type persist failed", zap.Error(err))
		return LeaveTypeResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("create leave type success",
		zap.String("leave_type_id", t.ID.String()),
		zap.String("code", t.Code),
	)
	return mapToResponse(*t), nil
}

func (s *service) GetAll(ctx context.Context) ([]LeaveTypeResponse, error) {
	types, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]LeaveTypeResponse, len(types))
	for i, t := range types {
		resp[i] = mapToResponse(t)
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error) {
	s.logger.Debug("update leave type requested", zap.String("leave_type_id", id))

	t, err := s.GetByID(ctx, id)
	if err != nil {
		return LeaveTypeResponse{}, err
	}

	daysPerYear, err := parseDays(req.DaysPerYear)
	if err != nil {
		return LeaveTypeResponse{}, err
	}
	threshold, err := parseOptionalDays(req.MedicalCertDaysThreshold)
	if err != nil {
		return LeaveTypeResponse{}, err
	}
	maxCarryOver, err := parseOptionalDays(req.MaxCarryOverDays)
	if err != nil {
		return LeaveTypeResponse{}, err
	}

	t.Name = req.Name
	t.DaysPerYear = daysPerYear
	t.GenderSpecific = req.GenderSpecific
	t.RequiresMedicalCert = req.RequiresMedicalCert
	t.MedicalCertDaysThreshold = threshold
	t.CarryOverAllowed = req.CarryOverAllowed
	t.MaxCarryOverDays = maxCarryOver
	t.CanApproveRoles = normalizeRoles(req.CanApproveRoles)
	t.SkipManagerForRoles = normalizeRoles(req.SkipManagerForRoles)
	if req.IsPaid != nil {
		t.IsPaid = *req.IsPaid
	}
	if req.RequiresManagerApproval != nil {
		t.RequiresManagerApproval = *req.RequiresManagerApproval
	}
	if req.RequiresHRApproval != nil {
		t.RequiresHRApproval = *req.RequiresHRApproval
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, t); err != nil {
		s.logger.Error("update leave type persist failed",
			zap.String("leave_type_id", id),
			zap.Error(err),
		)
		return LeaveTypeResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("update leave type success", zap.String("leave_type_id", id))
	return mapToResponse(*t), nil
}

func buildLeaveType(req CreateLeaveTypeRequest) (*LeaveType, error) {
	daysPerYear, err := parseDays(req.DaysPerYear)
	if err != nil {
		return nil, err
	}
	threshold, err := parseOptionalDays(req.MedicalCertDaysThreshold)
	if err != nil {
		return nil, err
	}
	maxCarryOver, err := parseOptionalDays(req.MaxCarryOverDays)
	if err != nil {
		return nil, err
	}

	t := &LeaveType{
		ID:                       uuid.New(),
		Code:                     req.Code,
		Name:                     req.Name,
		DaysPerYear:              daysPerYear,
		IsPaid:                   true,
		GenderSpecific:           req.GenderSpecific,
		RequiresMedicalCert:      req.RequiresMedicalCert,
		MedicalCertDaysThreshold: threshold,
		CarryOverAllowed:         req.CarryOverAllowed,
		MaxCarryOverDays:         maxCarryOver,
		RequiresManagerApproval:  true,
		RequiresHRApproval:       true,
		CanApproveRoles:          normalizeRoles(req.CanApproveRoles),
		SkipManagerForRoles:      normalizeRoles(req.SkipManagerForRoles),
		IsActive:                 true,
	}
	if req.IsPaid != nil {
		t.IsPaid = *req.IsPaid
	}
	if req.RequiresManagerApproval != nil {
		t.RequiresManagerApproval = *req.RequiresManagerApproval
	}
	if req.RequiresHRApproval != nil {
		t.RequiresHRApproval = *req.RequiresHRApproval
	}
	return t, nil
}

func parseDays(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, leavetypeerrors.ErrInvalidDays
	}
	return d, nil
}

func parseOptionalDays(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return parseDays(v)
}

func normalizeRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == "uq_leave_types_code" {
			return leavetypeerrors.ErrLeaveTypeCodeExists
		}
		if pgErr.Code == "23503" {
			return leavetypeerrors.ErrLeaveTypeInUse
		}
	}

	return err
}

func mapToResponse(t LeaveType) LeaveTypeResponse {
	return LeaveTypeResponse{
		ID:                       t.ID.String(),
		Code:                     t.Code,
		Name:                     t.Name,
		DaysPerYear:              t.DaysPerYear.String(),
		IsPaid:                   t.IsPaid,
		GenderSpecific:           t.GenderSpecific,
		RequiresMedicalCert:      t.RequiresMedicalCert,
		MedicalCertDaysThreshold: t.MedicalCertDaysThreshold.String(),
		CarryOverAllowed:         t.CarryOverAllowed,
		MaxCarryOverDays:         t.MaxCarryOverDays.String(),
		RequiresManagerApproval:  t.RequiresManagerApproval,
		RequiresHRApproval:       t.RequiresHRApproval,
		CanApproveRoles:          t.CanApproveRoles,
		SkipManagerForRoles:      t.SkipManagerForRoles,
		IsActive:                 t.IsActive,
	}
}
