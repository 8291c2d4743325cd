package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/patient"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the pool. Queries slower than cfg.SlowQueryThreshold are
// logged at warn level through log.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormLog := gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             cfg.SlowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})

	gormCfg := &gorm.Config{
		Logger:      gormLog,
		PrepareStmt: true,
		// Translated errors (gorm.ErrDuplicatedKey) would hide the pgconn
		// constraint name the repository inspects.
		TranslateError: false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"clinical", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.AuditLog{},
		&patient.Patient{},
		&appointment.Appointment{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// ActiveStartIndex rejects a second active appointment at the same instant.
// The repository maps its violation to appointment.ErrSlotTaken.
const ActiveStartIndex = "uq_appointments_active_start"

var indexes = []struct {
	name  string
	query string
}{
	{
		name:  ActiveStartIndex,
		query: `CREATE UNIQUE INDEX IF NOT EXISTS ` + ActiveStartIndex + ` ON clinical.appointments (scheduled_at) WHERE deleted_at IS NULL AND status <> 'cancelled'`,
	},
	{
		name:  "idx_appointments_day_schedule",
		query: `CREATE INDEX IF NOT EXISTS idx_appointments_day_schedule ON clinical.appointments (appointment_date, scheduled_at) WHERE deleted_at IS NULL AND status <> 'cancelled'`,
	},
	{
		name:  "idx_appointments_patient_schedule",
		query: `CREATE INDEX IF NOT EXISTS idx_appointments_patient_schedule ON clinical.appointments (patient_id, scheduled_at DESC) WHERE deleted_at IS NULL`,
	},
}
