package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

const (
	connectAttempts = 5
	connectBackoff  = 5 * time.Second
)

// DB is the process wide connection pool, set by SetupDatabase.
var DB *gorm.DB

func GetDB() *gorm.DB {
	return DB
}

// Config holds the MySQL connection settings shared by the service and the
// migrate command.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// ConfigFromEnv reads DB_USER, DB_PASSWORD, DB_HOST, DB_PORT and DB_NAME.
func ConfigFromEnv() Config {
	return Config{
		User:     env.GetEnv("DB_USER", "donationdesk"),
		Password: env.GetEnv("DB_PASSWORD", ""),
		Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
		Port:     env.GetEnv("DB_PORT", "3306"),
		Name:     env.GetEnv("DB_NAME", "donationdesk"),
	}
}

// DSN is the go-sql-driver form used by gorm. Times are read as UTC so
// timestamps compare the same in every process.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// MigrateURL is the golang-migrate URL of the same database.
func (c Config) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// String omits the password, for logs.
func (c Config) String() string {
	return fmt.Sprintf("%s@%s:%s/%s", c.User, c.Host, c.Port, c.Name)
}

// Models lists the tables kept in sync by DB_AUTO_MIGRATE.
func Models() []interface{} {
	return []interface{}{
		&models.Setting{},
		&models.DonorType{},
		&models.ModeOfPayment{},
		&models.Donor{},
		&models.Donation{},
		&models.Comment{},
		&models.ErrorLog{},
		&models.DonationWebhookEvent{},
	}
}

// Open connects to MySQL, retrying while the server comes up.
func Open(cfg Config) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := gorm.Open(mysql.New(mysql.Config{
			DSN:                      cfg.DSN(),
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
		}), &gorm.Config{
			// unique violations surface as gorm.ErrDuplicatedKey
			TranslateError: true,
		})
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warnf("[Database] connect to %s failed (attempt %d/%d): %v", cfg, attempt, connectAttempts, err)
		if attempt < connectAttempts {
			time.Sleep(connectBackoff)
		}
	}
	return nil, fmt.Errorf("connect to %s: %w", cfg, lastErr)
}

// SetupDatabase opens DB from the environment and panics when MySQL stays
// unreachable.
func SetupDatabase() {
	cfg := ConfigFromEnv()
	db, err := Open(cfg)
	if err != nil {
		panic(err)
	}
	if env.GetEnvBool("DB_AUTO_MIGRATE", false) {
		if err := db.AutoMigrate(Models()...); err != nil {
			log.Errorf("[Database] auto migrate failed: %v", err)
		}
	}
	DB = db
	log.Infof("[Database] connected to %s", cfg)
}
