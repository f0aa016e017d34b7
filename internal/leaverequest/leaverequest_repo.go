package leaverequest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	leaverequesterrors "leaveflow/internal/leaverequest/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=leaverequest_repo.go -destination=mock/leaverequest_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Insert(ctx context.Context, r *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	// FindByIDForUpdate locks the row for the remainder of the transaction.
	// Returns gorm.ErrRecordNotFound when no row exists.
	FindByIDForUpdate(ctx context.Context, id string) (*LeaveRequest, error)
	// Update persists the request guarded by its version; a stale version
	// returns ErrConcurrentUpdate.
	Update(ctx context.Context, r *LeaveRequest) error
	List(ctx context.Context, filter ListFilter) ([]LeaveRequest, int64, error)
	HasOverlappingRequest(ctx context.Context, userID string, start, end string, excludeID string) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Insert(ctx context.Context, lr *LeaveRequest) error {
	query := `
INSERT INTO leave_requests (
	id, request_number, user_id, leave_type_id,
	start_date, end_date, duration, custom_start_time, custom_end_time, total_days,
	reason, attachment_ref, emergency_contact_name, emergency_contact_phone, availability_tag,
	status, version, manager_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`
	_, err := r.execer().ExecContext(ctx, query,
		lr.ID, lr.RequestNumber, lr.UserID, lr.LeaveTypeID,
		lr.StartDate, lr.EndDate, lr.Duration, lr.CustomStartTime, lr.CustomEndTime, lr.TotalDays,
		lr.Reason, lr.AttachmentRef, lr.EmergencyContactName, lr.EmergencyContactPhone, lr.AvailabilityTag,
		lr.Status, lr.Version, lr.ManagerID,
	)
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := r.db.WithContext(ctx).First(&lr, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

const requestColumns = `
	id::text, request_number, user_id::text, leave_type_id::text,
	start_date, end_date, duration, custom_start_time, custom_end_time, total_days,
	reason, attachment_ref, emergency_contact_name, emergency_contact_phone, availability_tag,
	status, version,
	manager_id::text, manager_decided_by::text, manager_decided_at, manager_comments,
	hr_decided_by::text, hr_decided_at, hr_comments,
	appeal_reason, appealed_at,
	cancellation_reason, cancellation_requested_at,
	cancellation_decided_by::text, cancellation_decided_at, cancellation_hr_comments,
	created_at, updated_at
`

func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*LeaveRequest, error) {
	query := `
SELECT ` + requestColumns + `
FROM leave_requests
WHERE id = $1 AND deleted_at IS NULL
FOR UPDATE
`
	row := r.queryer().QueryRowContext(ctx, query, id)
	lr, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return lr, nil
}

func (r *repository) Update(ctx context.Context, lr *LeaveRequest) error {
	query := `
UPDATE leave_requests
SET
	status = $3,
	version = version + 1,
	manager_decided_by = $4,
	manager_decided_at = $5,
	manager_comments = $6,
	hr_decided_by = $7,
	hr_decided_at = $8,
	hr_comments = $9,
	appeal_reason = $10,
	appealed_at = $11,
	cancellation_reason = $12,
	cancellation_requested_at = $13,
	cancellation_decided_by = $14,
	cancellation_decided_at = $15,
	cancellation_hr_comments = $16,
	updated_at = NOW()
WHERE id = $1 AND version = $2 AND deleted_at IS NULL
`
	res, err := r.execer().ExecContext(ctx, query,
		lr.ID, lr.Version,
		lr.Status,
		lr.ManagerDecidedBy, lr.ManagerDecidedAt, lr.ManagerComments,
		lr.HRDecidedBy, lr.HRDecidedAt, lr.HRComments,
		lr.AppealReason, lr.AppealedAt,
		lr.CancellationReason, lr.CancellationRequestedAt,
		lr.CancellationDecidedBy, lr.CancellationDecidedAt, lr.CancellationHRComments,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leaverequesterrors.ErrConcurrentUpdate
	}
	lr.Version++
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]LeaveRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&LeaveRequest{})

	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.LeaveTypeID != "" {
		q = q.Where("leave_type_id = ?", filter.LeaveTypeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var requests []LeaveRequest
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// activeStatuses are statuses that still occupy the requested period.
var activeStatuses = []Status{
	StatusPendingManager,
	StatusPendingHR,
	StatusApproved,
	StatusPendingCancellation,
}

func (r *repository) HasOverlappingRequest(ctx context.Context, userID string, start, end string, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&LeaveRequest{}).
		Where("user_id = ?", userID).
		Where("status IN ?", activeStatuses).
		Where("start_date <= ?", end).
		Where("end_date >= ?", start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanRequest(row *sql.Row) (*LeaveRequest, error) {
	var (
		lr                     LeaveRequest
		id, user, leaveTypeID  string
		duration, status       string
		customStart, customEnd sql.NullString
		attachment             sql.NullString
		emName, emPhone        sql.NullString
		availability           sql.NullString
		managerID              sql.NullString
		mgrBy                  sql.NullString
		mgrAt                  sql.NullTime
		mgrComments            sql.NullString
		hrBy                   sql.NullString
		hrAt                   sql.NullTime
		hrComments             sql.NullString
		appealReason           sql.NullString
		appealedAt             sql.NullTime
		cancelReason           sql.NullString
		cancelRequestedAt      sql.NullTime
		cancelBy               sql.NullString
		cancelAt               sql.NullTime
		cancelComments         sql.NullString
	)

	err := row.Scan(
		&id, &lr.RequestNumber, &user, &leaveTypeID,
		&lr.StartDate, &lr.EndDate, &duration, &customStart, &customEnd, &lr.TotalDays,
		&lr.Reason, &attachment, &emName, &emPhone, &availability,
		&status, &lr.Version,
		&managerID, &mgrBy, &mgrAt, &mgrComments,
		&hrBy, &hrAt, &hrComments,
		&appealReason, &appealedAt,
		&cancelReason, &cancelRequestedAt,
		&cancelBy, &cancelAt, &cancelComments,
		&lr.CreatedAt, &lr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lr.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if lr.UserID, err = uuid.Parse(user); err != nil {
		return nil, err
	}
	if lr.LeaveTypeID, err = uuid.Parse(leaveTypeID); err != nil {
		return nil, err
	}
	lr.Duration = Duration(duration)
	lr.Status = Status(status)

	lr.CustomStartTime = nullString(customStart)
	lr.CustomEndTime = nullString(customEnd)
	lr.AttachmentRef = nullString(attachment)
	lr.EmergencyContactName = nullString(emName)
	lr.EmergencyContactPhone = nullString(emPhone)
	lr.AvailabilityTag = nullString(availability)
	lr.ManagerComments = nullString(mgrComments)
	lr.HRComments = nullString(hrComments)
	lr.AppealReason = nullString(appealReason)
	lr.CancellationReason = nullString(cancelReason)
	lr.CancellationHRComments = nullString(cancelComments)

	lr.ManagerDecidedAt = nullTime(mgrAt)
	lr.HRDecidedAt = nullTime(hrAt)
	lr.AppealedAt = nullTime(appealedAt)
	lr.CancellationRequestedAt = nullTime(cancelRequestedAt)
	lr.CancellationDecidedAt = nullTime(cancelAt)

	if lr.ManagerID, err = nullUUID(managerID); err != nil {
		return nil, err
	}
	if lr.ManagerDecidedBy, err = nullUUID(mgrBy); err != nil {
		return nil, err
	}
	if lr.HRDecidedBy, err = nullUUID(hrBy); err != nil {
		return nil, err
	}
	if lr.CancellationDecidedBy, err = nullUUID(cancelBy); err != nil {
		return nil, err
	}

	return &lr, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func nullUUID(v sql.NullString) (*uuid.UUID, error) {
	if !v.Valid {
		return nil, nil
	}
	parsed, err := uuid.Parse(v.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (r *repository) queryer() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		panic(err)
	}
	return sqlDB
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		panic(err)
	}
	return sqlDB
}
