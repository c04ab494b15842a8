package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/enrollment/internal/app/controllers"
	appMigrations "github.com/yigit/enrollment/internal/app/migrations"
	appRepos "github.com/yigit/enrollment/internal/app/repositories"
	appRoutes "github.com/yigit/enrollment/internal/app/routes"
	appServices "github.com/yigit/enrollment/internal/app/services"
	"github.com/yigit/enrollment/internal/config"
	"github.com/yigit/enrollment/internal/db"
	appMiddleware "github.com/yigit/enrollment/internal/middleware"
	pkgAuth "github.com/yigit/enrollment/internal/pkg/auth"
	"github.com/yigit/enrollment/internal/pkg/helpers"
	"github.com/yigit/enrollment/internal/pkg/logger"
	"github.com/yigit/enrollment/internal/pkg/notify"
	"github.com/yigit/enrollment/internal/seed"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	EnrollmentService     appServices.EnrollmentService
	ReconciliationService appServices.ReconciliationService
	ConflictService       appServices.ConflictService
	RosterExportService   appServices.RosterExportService
	EnrollmentController  *appControllers.EnrollmentController
	CourseController      *appControllers.CourseController
	AdminController       *appControllers.AdminController
	AuthMiddleware        *appMiddleware.AuthMiddleware
	RateLimit             gin.HandlerFunc // nil when disabled
	Repos                 *appRepos.Repositories
	JWTService            *pkgAuth.JWTService
	Notifier              notify.Notifier
	Redis                 *redis.Client // nil unless the redis rate store is used
	Logger                zerolog.Logger
}

// Close releases clients owned by the dependencies
func (d *Dependencies) Close() error {
	if d.Redis != nil {
		return d.Redis.Close()
	}
	return nil
}

// Database is the open store selected by database.driver
type Database struct {
	Postgres *db.PostgresDB
	SQLite   *db.SQLiteDB
}

// Repositories wires the repositories for whichever store is open
func (d *Database) Repositories() *appRepos.Repositories {
	if d.SQLite != nil {
		return appRepos.NewSQLiteRepositories(d.SQLite)
	}
	return appRepos.NewPostgresRepositories(d.Postgres)
}

// Close closes the underlying store
func (d *Database) Close() error {
	if d.SQLite != nil {
		return d.SQLite.Close()
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	return nil
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the configured store and runs migrations.
// Demo courses are seeded outside production when database.seed is set.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Database, error) {
	database := &Database{}
	var migrator *appMigrations.Migrator

	switch strings.ToLower(cfg.Database.Driver) {
	case config.DriverSQLite:
		lgr.Info().Str("path", cfg.Database.SQLitePath).Msg("Opening SQLite database...")
		sqliteDB, err := db.NewSQLiteDB(cfg.Database.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to open SQLite database")
			return nil, err
		}
		database.SQLite = sqliteDB
		migrator = appMigrations.NewSQLiteMigrator(sqliteDB.DB, lgr)
	default:
		lgr.Info().Msg("Establishing database connection...")
		pgDB, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		database.Postgres = pgDB
		migrator = appMigrations.NewPostgresMigrator(pgDB.Pool, lgr)
	}
	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	if err := migrator.Migrate(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		_ = database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if cfg.Database.Seed && !cfg.IsProduction() {
		if err := seed.CreateDefaultData(ctx, database.Repositories().Enrollment, lgr); err != nil {
			// Log the error but don't fail the startup
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return database, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *Database, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = database.Repositories()

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.Notifier = notify.New(notify.SMTPConfig{
		Host:           cfg.Notify.SMTPHost,
		Port:           cfg.Notify.SMTPPort,
		Username:       cfg.Notify.SMTPUser,
		Password:       cfg.Notify.SMTPPassword,
		From:           cfg.Notify.From,
		AddressPattern: cfg.Notify.StudentEmail,
	}, lgr.With().Str("component", "notify").Logger())

	deps.ReconciliationService = appServices.NewReconciliationService(deps.Repos.Enrollment, lgr)
	deps.EnrollmentService = appServices.NewEnrollmentService(
		deps.Repos.Enrollment,
		deps.ReconciliationService,
		deps.Notifier,
		appServices.EnrollmentOptions{
			EnforceTimeConflicts: cfg.Enrollment.EnforceTimeConflicts,
			MaxRetries:           cfg.Enrollment.MaxRetries,
		},
		lgr,
	)
	deps.ConflictService = appServices.NewConflictService(deps.Repos.Enrollment, lgr)
	deps.RosterExportService = appServices.NewRosterExportService(deps.Repos.Enrollment, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	if cfg.RateLimit.Enabled {
		if err := setupRateLimit(cfg, deps); err != nil {
			_ = deps.Close()
			return nil, err
		}
	}

	deps.EnrollmentController = appControllers.NewEnrollmentController(deps.EnrollmentService, deps.ConflictService)
	deps.CourseController = appControllers.NewCourseController(deps.EnrollmentService, deps.ConflictService, deps.RosterExportService)
	deps.AdminController = appControllers.NewAdminController(deps.ReconciliationService)

	return deps, nil
}

func setupRateLimit(cfg *config.Config, deps *Dependencies) error {
	if cfg.RateLimit.Store == "redis" {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr: cfg.RateLimit.RedisAddr,
			DB:   cfg.RateLimit.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			deps.Logger.Error().Err(err).Str("addr", cfg.RateLimit.RedisAddr).Msg("Failed to connect to redis")
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Logger.Info().Str("addr", cfg.RateLimit.RedisAddr).Msg("Redis rate limit store connected")
	}

	store, err := appMiddleware.NewRateStore(deps.Redis)
	if err != nil {
		return err
	}
	deps.RateLimit, err = appMiddleware.RateLimit(store, cfg.RateLimit.Rate)
	return err
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestID(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router,
		deps.EnrollmentController,
		deps.CourseController,
		deps.AdminController,
		deps.AuthMiddleware,
		deps.RateLimit,
	)

	// Health endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
