package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	directoryerrors "leaveflow/internal/directory/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const userCacheKeyPrefix = "directory:user:"
const userCacheTTL = 5 * time.Minute

func userCacheKey(id string) string {
	return userCacheKeyPrefix + id
}

// Directory resolves users, reporting lines and roles for the leave workflow.
// It is the only view the core has of the wider HR system.
//
//go:generate mockgen -source=directory_service.go -destination=mock/directory_service_mock.go -package=mock
type Directory interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ResolveManager(ctx context.Context, userID string) (*uuid.UUID, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

type service struct {
	db     *gorm.DB
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(db *gorm.DB, rdb *redis.Client, logger ...*zap.Logger) Directory {
	l := zap.L().Named("directory.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("directory.service")
	}
	return &service{
		db:     db,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, directoryerrors.ErrInvalidUserID
	}

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, userCacheKey(id)).Result(); err == nil {
			var u User
			if err := json.Unmarshal([]byte(cached), &u); err == nil {
				return &u, nil
			}
		}
	}

	// Collapse concurrent lookups for the same user into one query.
	v, err, _ := s.sf.Do(id, func() (any, error) {
		var u User
		err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, directoryerrors.ErrUserNotFound
			}
			return nil, err
		}

		if s.rdb != nil {
			if payload, err := json.Marshal(u); err == nil {
				if err := s.rdb.Set(ctx, userCacheKey(id), payload, userCacheTTL).Err(); err != nil {
					s.logger.Warn("cache user failed", zap.String("user_id", id), zap.Error(err))
				}
			}
		}
		return &u, nil
	})
	if err != nil {
		return nil, err
	}

	u, ok := v.(*User)
	if !ok {
		return nil, fmt.Errorf("unexpected singleflight result type %T", v)
	}
	return u, nil
}

func (s *service) ResolveManager(ctx context.Context, userID string) (*uuid.UUID, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ManagerID, nil
}

func (s *service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}
