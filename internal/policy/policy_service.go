package policy

import (
	"context"
	"sync"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

// Resources and actions the leave workflow asks about.
const (
	ResourceLeaveRequest = "leave_request"
	ResourceLeaveBalance = "leave_balance"
	ResourceLeaveType    = "leave_type"

	ActionManagerDecide      = "manager_decide"
	ActionHRDecide           = "hr_decide"
	ActionCancellationDecide = "cancellation_decide"
	ActionReopen             = "reopen"
	ActionAdjust             = "adjust"
	ActionCarryOver          = "carry_over"
	ActionManage             = "manage"
)

// Service answers "may a user with this role perform this action". Identity
// guards (requester, snapshotted manager) stay with the caller; this covers
// the role-based grants, including per-leave-type override roles.
//
//go:generate mockgen -source=policy_service.go -destination=mock/policy_service_mock.go -package=mock
type Service interface {
	Authorize(ctx context.Context, actorRole, resource, action string, overrideRoles []string) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
	logger   *zap.Logger
}

func NewService(enforcer *casbin.Enforcer, logger ...*zap.Logger) Service {
	l := zap.L().Named("policy.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("policy.service")
	}
	return &service{enforcer: enforcer, logger: l}
}

// baseGrants are the standing role permissions; per-leave-type override
// roles are layered on top per evaluation.
var baseGrants = [][]string{
	{"hr", ResourceLeaveRequest, ActionHRDecide},
	{"hr", ResourceLeaveRequest, ActionManagerDecide},
	{"hr", ResourceLeaveRequest, ActionCancellationDecide},
	{"hr", ResourceLeaveRequest, ActionReopen},
	{"hr", ResourceLeaveBalance, ActionAdjust},
	{"admin", ResourceLeaveBalance, ActionCarryOver},
	{"admin", ResourceLeaveType, ActionManage},
}

var baseGroupings = [][]string{
	// admin inherits everything hr may do
	{"admin", "hr"},
}

func (s *service) Authorize(ctx context.Context, actorRole, resource, action string, overrideRoles []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforcer.ClearPolicy()

	for _, p := range baseGrants {
		if _, err := s.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return false, err
		}
	}
	for _, g := range baseGroupings {
		if _, err := s.enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return false, err
		}
	}

	// Roles listed on the leave type may approve at either level regardless
	// of the reporting line.
	for _, role := range overrideRoles {
		if _, err := s.enforcer.AddPolicy(role, ResourceLeaveRequest, ActionManagerDecide); err != nil {
			return false, err
		}
		if _, err := s.enforcer.AddPolicy(role, ResourceLeaveRequest, ActionHRDecide); err != nil {
			return false, err
		}
	}

	allowed, err := s.enforcer.Enforce(actorRole, resource, action)
	if err != nil {
		s.logger.Error("policy enforce failed",
			zap.String("role", actorRole),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Debug("policy enforce",
		zap.String("role", actorRole),
		zap.String("resource", resource),
		zap.String("action", action),
		zap.Bool("allowed", allowed),
	)

	return allowed, nil
}
