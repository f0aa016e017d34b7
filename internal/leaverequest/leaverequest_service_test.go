package leaverequest_test

import (
	"context"
	"database/sql"
	"testing"

	"leaveflow/internal/directory"
	directoryerrors "leaveflow/internal/directory/errors"
	"leaveflow/internal/leavebalance"
	leavebalanceerrors "leaveflow/internal/leavebalance/errors"
	"leaveflow/internal/leaverequest"
	leaverequesterrors "leaveflow/internal/leaverequest/errors"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeRequestRepo struct {
	stored  map[string]*leaverequest.LeaveRequest
	overlap bool
	// staleReads makes a competing writer advance the row version right
	// after each of the next N locked reads.
	staleReads int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{stored: make(map[string]*leaverequest.LeaveRequest)}
}

func (f *fakeRequestRepo) WithTx(tx *sql.Tx) leaverequest.Repository { return f }

func (f *fakeRequestRepo) Insert(ctx context.Context, r *leaverequest.LeaveRequest) error {
	cp := *r
	f.stored[r.ID.String()] = &cp
	return nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id string) (*leaverequest.LeaveRequest, error) {
	r, ok := f.stored[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequestRepo) FindByIDForUpdate(ctx context.Context, id string) (*leaverequest.LeaveRequest, error) {
	r, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.staleReads > 0 {
		f.staleReads--
		f.stored[id].Version++
	}
	return r, nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, r *leaverequest.LeaveRequest) error {
	current, ok := f.stored[r.ID.String()]
	if !ok || current.Version != r.Version {
		return leaverequesterrors.ErrConcurrentUpdate
	}
	cp := *r
	cp.Version++
	f.stored[r.ID.String()] = &cp
	r.Version++
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter leaverequest.ListFilter) ([]leaverequest.LeaveRequest, int64, error) {
	var out []leaverequest.LeaveRequest
	for _, r := range f.stored {
		if filter.UserID != "" && r.UserID.String() != filter.UserID {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequestRepo) HasOverlappingRequest(ctx context.Context, userID string, start, end string, excludeID string) (bool, error) {
	return f.overlap, nil
}

type fakeRegistry struct {
	types map[string]*leavetype.LeaveType
}

func (f *fakeRegistry) GetByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	if t, ok := f.types[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRegistry) GetByCode(ctx context.Context, code string) (*leavetype.LeaveType, error) {
	for _, t := range f.types {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeLedger struct {
	reserveErr error
	reserved   []decimal.Decimal
	released   []decimal.Decimal
}

func (f *fakeLedger) GetOrCreateTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int) (*leavebalance.LeaveBalance, error) {
	return &leavebalance.LeaveBalance{}, nil
}

func (f *fakeLedger) ReserveTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, days decimal.Decimal) (*leavebalance.LeaveBalance, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.reserved = append(f.reserved, days)
	return &leavebalance.LeaveBalance{}, nil
}

func (f *fakeLedger) ReleaseTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, days decimal.Decimal) (*leavebalance.LeaveBalance, error) {
	f.released = append(f.released, days)
	return &leavebalance.LeaveBalance{}, nil
}

type fakeDirectory struct {
	users map[string]*directory.User
}

func (f *fakeDirectory) GetUser(ctx context.Context, id string) (*directory.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, directoryerrors.ErrUserNotFound
}

func (f *fakeDirectory) ResolveManager(ctx context.Context, userID string) (*uuid.UUID, error) {
	u, err := f.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ManagerID, nil
}

func (f *fakeDirectory) HasRole(ctx context.Context, userID, role string) (bool, error) {
	u, err := f.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

type fakePolicy struct {
	authorize func(role, resource, action string, overrideRoles []string) bool
}

func (f *fakePolicy) Authorize(ctx context.Context, actorRole, resource, action string, overrideRoles []string) (bool, error) {
	if f.authorize != nil {
		return f.authorize(actorRole, resource, action, overrideRoles), nil
	}
	return actorRole == directory.RoleHR || actorRole == directory.RoleAdmin, nil
}

type fakeCounter struct {
	next int64
}

func (f *fakeCounter) GetNextValue(ctx context.Context, counterType string) (int64, error) {
	f.next++
	return f.next, nil
}

type fakeOutbox struct {
	events []kafka.OutboxEvent
}

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

// --- fixture ---

type serviceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service leaverequest.Service
	repo    *fakeRequestRepo
	ledger  *fakeLedger
	outbox  *fakeOutbox
	dir     *fakeDirectory

	employee  *directory.User
	manager   *directory.User
	hr        *directory.User
	leaveType *leavetype.LeaveType
}

func setupServiceTest(t *testing.T) *serviceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	managerID := uuid.New()
	manager := &directory.User{ID: managerID, FullName: "Mara", Role: directory.RoleManager, Gender: "female"}
	employee := &directory.User{ID: uuid.New(), FullName: "Edi", Role: directory.RoleEmployee, Gender: "male", ManagerID: &managerID}
	hr := &directory.User{ID: uuid.New(), FullName: "Hana", Role: directory.RoleHR, Gender: "female"}

	lt := &leavetype.LeaveType{
		ID:                      uuid.New(),
		Code:                    "ANNUAL",
		Name:                    "Annual Leave",
		DaysPerYear:             decimal.NewFromInt(12),
		IsPaid:                  true,
		RequiresManagerApproval: true,
		RequiresHRApproval:      true,
		CanApproveRoles:         []string{},
		SkipManagerForRoles:     []string{},
		IsActive:                true,
	}

	repo := newFakeRequestRepo()
	ledger := &fakeLedger{}
	outbox := &fakeOutbox{}
	dir := &fakeDirectory{users: map[string]*directory.User{
		employee.ID.String(): employee,
		manager.ID.String():  manager,
		hr.ID.String():       hr,
	}}
	registry := &fakeRegistry{types: map[string]*leavetype.LeaveType{lt.ID.String(): lt}}

	svc := leaverequest.NewService(
		db,
		repo,
		registry,
		ledger,
		dir,
		&fakePolicy{},
		&fakeCounter{},
		outbox,
		leaverequest.CalendarDayCounter{},
	)

	return &serviceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		ledger:    ledger,
		outbox:    outbox,
		dir:       dir,
		employee:  employee,
		manager:   manager,
		hr:        hr,
		leaveType: lt,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func (d *serviceDeps) submit(t *testing.T) leaverequest.LeaveRequestResponse {
	t.Helper()
	expectTx(t, d.sqlMock, true)
	resp, err := d.service.Submit(context.Background(), d.employee.ID.String(), leaverequest.SubmitLeaveRequest{
		LeaveTypeID: d.leaveType.ID.String(),
		StartDate:   "2026-03-02",
		EndDate:     "2026-03-04",
		Reason:      "family trip",
	})
	require.NoError(t, err)
	return resp
}

// --- tests ---

func TestLeaveRequestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path starts at manager stage", func(t *testing.T) {
		deps := setupServiceTest(t)

		resp := deps.submit(t)

		assert.Equal(t, string(leaverequest.StatusPendingManager), resp.Status)
		assert.Equal(t, "LR-000001", resp.RequestNumber)
		assert.Equal(t, "3", resp.TotalDays)
		require.NotNil(t, resp.ManagerID)
		assert.Equal(t, deps.manager.ID.String(), *resp.ManagerID)

		// Nothing reserved before final approval.
		assert.Empty(t, deps.ledger.reserved)
		require.Len(t, deps.outbox.events, 1)
		assert.Equal(t, "leave_request_submitted", deps.outbox.events[0].EventType)
	})

	t.Run("manager-less requester starts at HR stage", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.employee.ManagerID = nil

		resp := deps.submit(t)
		assert.Equal(t, string(leaverequest.StatusPendingHR), resp.Status)
	})

	t.Run("skip roles start at HR stage", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.leaveType.SkipManagerForRoles = []string{directory.RoleEmployee}

		resp := deps.submit(t)
		assert.Equal(t, string(leaverequest.StatusPendingHR), resp.Status)
	})

	t.Run("gender specific type rejects ineligible requester", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.leaveType.GenderSpecific = leavetype.GenderFemale

		_, err := deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID: deps.leaveType.ID.String(),
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-04",
		})
		assert.ErrorIs(t, err, leaverequesterrors.ErrNotEligible)
	})

	t.Run("inactive type is rejected", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.leaveType.IsActive = false

		_, err := deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID: deps.leaveType.ID.String(),
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-04",
		})
		assert.ErrorIs(t, err, leaverequesterrors.ErrLeaveTypeInactive)
	})

	t.Run("medical certificate required above threshold", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.leaveType.RequiresMedicalCert = true
		deps.leaveType.MedicalCertDaysThreshold = decimal.NewFromInt(2)

		_, err := deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID: deps.leaveType.ID.String(),
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-04",
		})
		assert.ErrorIs(t, err, leaverequesterrors.ErrMedicalCertRequired)

		// With an attachment it goes through.
		ref := "s3://certs/abc"
		expectTx(t, deps.sqlMock, true)
		_, err = deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID:   deps.leaveType.ID.String(),
			StartDate:     "2026-03-02",
			EndDate:       "2026-03-04",
			AttachmentRef: &ref,
		})
		assert.NoError(t, err)
	})

	t.Run("overlapping active request is a conflict", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.repo.overlap = true

		_, err := deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID: deps.leaveType.ID.String(),
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-04",
		})
		assert.ErrorIs(t, err, leaverequesterrors.ErrLeaveOverlap)
	})

	t.Run("end before start is rejected", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID: deps.leaveType.ID.String(),
			StartDate:   "2026-03-04",
			EndDate:     "2026-03-02",
		})
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidDateRange)
	})

	t.Run("bad date format is rejected", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Submit(ctx, deps.employee.ID.String(), leaverequest.SubmitLeaveRequest{
			LeaveTypeID: deps.leaveType.ID.String(),
			StartDate:   "02-03-2026",
			EndDate:     "2026-03-04",
		})
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidDateFormat)
	})
}

func TestLeaveRequestService_TwoStageApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("manager approval forwards to HR, HR approval reserves", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusPendingHR), resp2.Status)
		assert.Empty(t, deps.ledger.reserved)

		expectTx(t, deps.sqlMock, true)
		resp3, err := deps.service.HRDecide(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusApproved), resp3.Status)

		require.Len(t, deps.ledger.reserved, 1)
		assert.True(t, deps.ledger.reserved[0].Equal(decimal.NewFromInt(3)))

		// submitted, manager approved, hr approved
		require.Len(t, deps.outbox.events, 3)
		assert.Equal(t, "leave_request_hr_approved", deps.outbox.events[2].EventType)
	})

	t.Run("manager approval is final when HR stage is disabled", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.leaveType.RequiresHRApproval = false
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusApproved), resp2.Status)
		require.Len(t, deps.ledger.reserved, 1)
	})

	t.Run("insufficient balance keeps request pending", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)

		deps.ledger.reserveErr = leavebalanceerrors.ErrInsufficientBalance
		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.HRDecide(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		assert.ErrorIs(t, err, leavebalanceerrors.ErrInsufficientBalance)

		stored, _ := deps.repo.FindByID(ctx, resp.ID)
		assert.Equal(t, leaverequest.StatusPendingHR, stored.Status)
	})

	t.Run("rejection requires comments", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: false})
		assert.ErrorIs(t, err, leaverequesterrors.ErrCommentsRequired)
	})

	t.Run("stranger cannot decide at manager stage", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.ManagerDecide(ctx, deps.employee.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		assert.ErrorIs(t, err, leaverequesterrors.ErrUnauthorizedActor)
	})

	t.Run("override role may decide at manager stage", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.leaveType.CanApproveRoles = []string{directory.RoleHR}
		resp := deps.submit(t)

		// HR is not the snapshotted manager but carries an override role.
		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.ManagerDecide(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusPendingHR), resp2.Status)
	})

	t.Run("decision on wrong stage is an invalid transition", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.HRDecide(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidTransition)
	})
}

func TestLeaveRequestService_AppealFlow(t *testing.T) {
	ctx := context.Background()

	deps := setupServiceTest(t)
	resp := deps.submit(t)

	expectTx(t, deps.sqlMock, true)
	_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: false, Comments: "critical sprint"})
	require.NoError(t, err)

	t.Run("only the requester may appeal", func(t *testing.T) {
		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.Appeal(ctx, deps.manager.ID.String(), resp.ID, leaverequest.AppealRequest{Reason: "please"})
		assert.ErrorIs(t, err, leaverequesterrors.ErrUnauthorizedActor)
	})

	t.Run("appeal requires a reason", func(t *testing.T) {
		_, err := deps.service.Appeal(ctx, deps.employee.ID.String(), resp.ID, leaverequest.AppealRequest{})
		assert.ErrorIs(t, err, leaverequesterrors.ErrAppealReasonRequired)
	})

	t.Run("appeal then reopen lands at HR stage", func(t *testing.T) {
		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.Appeal(ctx, deps.employee.ID.String(), resp.ID, leaverequest.AppealRequest{Reason: "dates moved"})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusAppealed), resp2.Status)

		expectTx(t, deps.sqlMock, true)
		resp3, err := deps.service.Reopen(ctx, deps.hr.ID.String(), resp.ID)
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusPendingHR), resp3.Status)
	})

	t.Run("employee cannot reopen their own appeal", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: false, Comments: "no"})
		require.NoError(t, err)

		expectTx(t, deps.sqlMock, true)
		_, err = deps.service.Appeal(ctx, deps.employee.ID.String(), resp.ID, leaverequest.AppealRequest{Reason: "please"})
		require.NoError(t, err)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Reopen(ctx, deps.employee.ID.String(), resp.ID)
		assert.ErrorIs(t, err, leaverequesterrors.ErrUnauthorizedActor)
	})
}

func TestLeaveRequestService_Cancellation(t *testing.T) {
	ctx := context.Background()

	approve := func(t *testing.T, deps *serviceDeps, id string) {
		t.Helper()
		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), id, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		expectTx(t, deps.sqlMock, true)
		_, err = deps.service.HRDecide(ctx, deps.hr.ID.String(), id, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
	}

	t.Run("own cancellation before approval releases nothing", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.Cancel(ctx, deps.employee.ID.String(), resp.ID)
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusCancelled), resp2.Status)
		assert.Empty(t, deps.ledger.released)
	})

	t.Run("approved request needs HR sign-off to cancel", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)
		approve(t, deps, resp.ID)

		// Direct cancel is no longer allowed.
		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.Cancel(ctx, deps.employee.ID.String(), resp.ID)
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidTransition)

		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.RequestCancellation(ctx, deps.employee.ID.String(), resp.ID, leaverequest.CancellationRequest{Reason: "plans changed"})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusPendingCancellation), resp2.Status)
		assert.Empty(t, deps.ledger.released)

		expectTx(t, deps.sqlMock, true)
		resp3, err := deps.service.DecideCancellation(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusCancelled), resp3.Status)

		require.Len(t, deps.ledger.released, 1)
		assert.True(t, deps.ledger.released[0].Equal(decimal.NewFromInt(3)))
	})

	t.Run("rejected cancellation keeps the reservation", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)
		approve(t, deps, resp.ID)

		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.RequestCancellation(ctx, deps.employee.ID.String(), resp.ID, leaverequest.CancellationRequest{Reason: "plans changed"})
		require.NoError(t, err)

		expectTx(t, deps.sqlMock, true)
		resp2, err := deps.service.DecideCancellation(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: false, Comments: "blackout period"})
		require.NoError(t, err)
		assert.Equal(t, string(leaverequest.StatusApproved), resp2.Status)
		assert.Empty(t, deps.ledger.released)
	})

	t.Run("cancellation request requires a reason", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)
		approve(t, deps, resp.ID)

		_, err := deps.service.RequestCancellation(ctx, deps.employee.ID.String(), resp.ID, leaverequest.CancellationRequest{})
		assert.ErrorIs(t, err, leaverequesterrors.ErrCancellationReasonRequired)
	})
}

func TestLeaveRequestService_ConcurrentDecisions(t *testing.T) {
	ctx := context.Background()

	t.Run("losing a version race is a conflict and changes nothing", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		deps.repo.staleReads = 1
		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		assert.ErrorIs(t, err, leaverequesterrors.ErrConcurrentUpdate)

		stored, _ := deps.repo.FindByID(ctx, resp.ID)
		assert.Equal(t, leaverequest.StatusPendingManager, stored.Status)
		assert.Empty(t, deps.ledger.reserved)
		// Only the submission event made it out.
		assert.Len(t, deps.outbox.events, 1)
	})

	t.Run("duplicate approval debits the ledger exactly once", func(t *testing.T) {
		deps := setupServiceTest(t)
		resp := deps.submit(t)

		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.ManagerDecide(ctx, deps.manager.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)

		expectTx(t, deps.sqlMock, true)
		_, err = deps.service.HRDecide(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		require.NoError(t, err)
		require.Len(t, deps.ledger.reserved, 1)

		// A second approver lands after the first one committed.
		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.HRDecide(ctx, deps.hr.ID.String(), resp.ID, leaverequest.DecisionRequest{Approve: true})
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidTransition)

		stored, _ := deps.repo.FindByID(ctx, resp.ID)
		assert.Equal(t, leaverequest.StatusApproved, stored.Status)
		require.Len(t, deps.ledger.reserved, 1)
	})
}

func TestLeaveRequestService_Visibility(t *testing.T) {
	ctx := context.Background()

	deps := setupServiceTest(t)
	other := &directory.User{ID: uuid.New(), FullName: "Omar", Role: directory.RoleEmployee, Gender: "male"}
	deps.dir.users[other.ID.String()] = other

	resp := deps.submit(t)

	t.Run("requester, manager and HR may view", func(t *testing.T) {
		for _, actor := range []string{deps.employee.ID.String(), deps.manager.ID.String(), deps.hr.ID.String()} {
			_, err := deps.service.Get(ctx, actor, resp.ID)
			assert.NoError(t, err)
		}
	})

	t.Run("unrelated employee may not view", func(t *testing.T) {
		_, err := deps.service.Get(ctx, other.ID.String(), resp.ID)
		assert.ErrorIs(t, err, leaverequesterrors.ErrUnauthorizedActor)
	})

	t.Run("employee list is forced to their own requests", func(t *testing.T) {
		_, _, err := deps.service.List(ctx, other.ID.String(), leaverequest.ListFilter{UserID: deps.employee.ID.String()})
		assert.ErrorIs(t, err, leaverequesterrors.ErrUnauthorizedActor)

		items, total, err := deps.service.List(ctx, deps.employee.ID.String(), leaverequest.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, resp.ID, items[0].ID)
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		_, err := deps.service.Get(ctx, deps.hr.ID.String(), uuid.New().String())
		assert.ErrorIs(t, err, leaverequesterrors.ErrRequestNotFound)
	})
}
