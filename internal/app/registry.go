package app

import (
	"database/sql"

	"leaveflow/internal/config"
	"leaveflow/internal/directory"
	"leaveflow/internal/leavebalance"
	"leaveflow/internal/leaverequest"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/middleware"
	"leaveflow/internal/policy"
	"leaveflow/internal/shared/counter"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cfg *config.Config,
) error {
	// --- Repositories ---
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	leaveBalanceRepo := leavebalance.NewRepository(gormDB)
	leaveRequestRepo := leaverequest.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Policy Core ---
	enforcer, err := policy.NewEnforcer()
	if err != nil {
		return err
	}
	policyService := policy.NewService(enforcer)

	// --- Services ---
	directoryService := directory.NewService(gormDB, rdb)
	leaveTypeService := leavetype.NewService(leaveTypeRepo)
	leaveBalanceService := leavebalance.NewService(db, leaveBalanceRepo, leaveTypeService, cfg.CarryOver.Concurrency)
	leaveRequestService := leaverequest.NewService(
		db,
		leaveRequestRepo,
		leaveTypeService,
		leaveBalanceService,
		directoryService,
		policyService,
		counterRepo,
		outboxRepo,
		leaverequest.CalendarDayCounter{},
	)

	// --- Handlers ---
	leaveTypeHandler := leavetype.NewHandler(leaveTypeService)
	leaveBalanceHandler := leavebalance.NewHandler(leaveBalanceService)
	leaveRequestHandler := leaverequest.NewHandler(leaveRequestService)

	auth := middleware.AuthMiddleware(cfg.Auth.JWTSecret)
	idempotency := middleware.Idempotency(rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		leavetype.RegisterRoutes(api, leaveTypeHandler, policyService, auth)
		leavebalance.RegisterRoutes(api, leaveBalanceHandler, policyService, auth)
		leaverequest.RegisterRoutes(api, leaveRequestHandler, auth, idempotency)
	}

	return nil
}
