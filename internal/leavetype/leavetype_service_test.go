package leavetype_test

import (
	"context"
	"testing"

	"leaveflow/internal/leavetype"
	leavetypeerrors "leaveflow/internal/leavetype/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTypeRepo struct {
	byID      map[string]*leavetype.LeaveType
	createErr error
	updateErr error
}

func newFakeTypeRepo() *fakeTypeRepo {
	return &fakeTypeRepo{byID: make(map[string]*leavetype.LeaveType)}
}

func (f *fakeTypeRepo) Create(ctx context.Context, t *leavetype.LeaveType) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.byID[t.ID.String()] = t
	return nil
}

func (f *fakeTypeRepo) FindAll(ctx context.Context) ([]leavetype.LeaveType, error) {
	var out []leavetype.LeaveType
	for _, t := range f.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTypeRepo) FindByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	if t, ok := f.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTypeRepo) FindByCode(ctx context.Context, code string) (*leavetype.LeaveType, error) {
	for _, t := range f.byID {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTypeRepo) Update(ctx context.Context, t *leavetype.LeaveType) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.byID[t.ID.String()] = t
	return nil
}

func (f *fakeTypeRepo) IsReferenced(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func TestLeaveTypeService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults are applied", func(t *testing.T) {
		repo := newFakeTypeRepo()
		svc := leavetype.NewService(repo)

		resp, err := svc.Create(ctx, leavetype.CreateLeaveTypeRequest{
			Code:        "ANNUAL",
			Name:        "Annual Leave",
			DaysPerYear: "12",
		})
		require.NoError(t, err)

		assert.Equal(t, "ANNUAL", resp.Code)
		assert.Equal(t, "12", resp.DaysPerYear)
		assert.True(t, resp.IsPaid)
		assert.True(t, resp.RequiresManagerApproval)
		assert.True(t, resp.RequiresHRApproval)
		assert.True(t, resp.IsActive)
		assert.NotNil(t, resp.CanApproveRoles)
	})

	t.Run("explicit flags override defaults", func(t *testing.T) {
		repo := newFakeTypeRepo()
		svc := leavetype.NewService(repo)

		unpaid := false
		noManager := false
		resp, err := svc.Create(ctx, leavetype.CreateLeaveTypeRequest{
			Code:                    "UNPAID",
			Name:                    "Unpaid Leave",
			DaysPerYear:             "30",
			IsPaid:                  &unpaid,
			RequiresManagerApproval: &noManager,
		})
		require.NoError(t, err)
		assert.False(t, resp.IsPaid)
		assert.False(t, resp.RequiresManagerApproval)
	})

	t.Run("negative or malformed days fail", func(t *testing.T) {
		svc := leavetype.NewService(newFakeTypeRepo())

		_, err := svc.Create(ctx, leavetype.CreateLeaveTypeRequest{Code: "X", Name: "X", DaysPerYear: "-1"})
		assert.ErrorIs(t, err, leavetypeerrors.ErrInvalidDays)

		_, err = svc.Create(ctx, leavetype.CreateLeaveTypeRequest{Code: "X", Name: "X", DaysPerYear: "twelve"})
		assert.ErrorIs(t, err, leavetypeerrors.ErrInvalidDays)
	})

	t.Run("duplicate code maps to a conflict", func(t *testing.T) {
		repo := newFakeTypeRepo()
		repo.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "uq_leave_types_code"}
		svc := leavetype.NewService(repo)

		_, err := svc.Create(ctx, leavetype.CreateLeaveTypeRequest{Code: "ANNUAL", Name: "Annual", DaysPerYear: "12"})
		assert.ErrorIs(t, err, leavetypeerrors.ErrLeaveTypeCodeExists)
	})
}

func TestLeaveTypeService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates fields and keeps unset flags", func(t *testing.T) {
		repo := newFakeTypeRepo()
		svc := leavetype.NewService(repo)

		created, err := svc.Create(ctx, leavetype.CreateLeaveTypeRequest{
			Code: "SICK", Name: "Sick Leave", DaysPerYear: "10",
		})
		require.NoError(t, err)

		resp, err := svc.Update(ctx, created.ID, leavetype.UpdateLeaveTypeRequest{
			Name:                "Sick Leave (v2)",
			DaysPerYear:         "14",
			RequiresMedicalCert: true,
			CanApproveRoles:     []string{"hr"},
		})
		require.NoError(t, err)

		assert.Equal(t, "Sick Leave (v2)", resp.Name)
		assert.Equal(t, "14", resp.DaysPerYear)
		assert.True(t, resp.RequiresMedicalCert)
		assert.Equal(t, []string{"hr"}, resp.CanApproveRoles)
		// Flags not carried in the request keep their stored values.
		assert.True(t, resp.IsPaid)
		assert.True(t, resp.IsActive)
	})

	t.Run("deactivation via is_active flag", func(t *testing.T) {
		repo := newFakeTypeRepo()
		svc := leavetype.NewService(repo)

		created, err := svc.Create(ctx, leavetype.CreateLeaveTypeRequest{
			Code: "MATERNITY", Name: "Maternity Leave", DaysPerYear: "90",
		})
		require.NoError(t, err)

		inactive := false
		resp, err := svc.Update(ctx, created.ID, leavetype.UpdateLeaveTypeRequest{
			Name:        created.Name,
			DaysPerYear: created.DaysPerYear,
			IsActive:    &inactive,
		})
		require.NoError(t, err)
		assert.False(t, resp.IsActive)
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := leavetype.NewService(newFakeTypeRepo())

		_, err := svc.Update(ctx, uuid.New().String(), leavetype.UpdateLeaveTypeRequest{Name: "X", DaysPerYear: "1"})
		assert.ErrorIs(t, err, leavetypeerrors.ErrLeaveTypeNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := leavetype.NewService(newFakeTypeRepo())

		_, err := svc.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, leavetypeerrors.ErrInvalidLeaveTypeID)
	})
}

func TestLeaveTypeHelpers(t *testing.T) {
	lt := leavetype.LeaveType{
		GenderSpecific:      leavetype.GenderFemale,
		SkipManagerForRoles: []string{"manager", "hr"},
	}

	assert.True(t, lt.EligibleForGender("female"))
	assert.False(t, lt.EligibleForGender("male"))
	assert.True(t, lt.SkipsManagerFor("manager"))
	assert.False(t, lt.SkipsManagerFor("employee"))

	anyGender := leavetype.LeaveType{}
	assert.True(t, anyGender.EligibleForGender("male"))
	assert.True(t, anyGender.EligibleForGender("female"))
}
