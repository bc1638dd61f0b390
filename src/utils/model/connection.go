package model

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/config"
	l "github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/model/sql_migrations"

	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewGormLogger() logger.Interface {
	return logger.New(l.NewSublogger("db"),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Error,           // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,                  // Disable color
		},
	)
}

// Timestamps are kept in UTC regardless of the server's zone
func NowFunc() time.Time {
	return time.Now().UTC()
}

func dsn(dbConfig *config.Database, username, password, applicationName string) (out string, cleanup func(), err error) {
	cleanup = func() {}
	if dbConfig.Url != "" && username == dbConfig.User {
		return dbConfig.Url, cleanup, nil
	}

	out = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=market/%s",
		dbConfig.Host,
		dbConfig.Port,
		username,
		password,
		dbConfig.Name,
		dbConfig.SslMode,
		applicationName,
	)

	if dbConfig.ClientKey == "" || dbConfig.ClientCert == "" || dbConfig.CaCert == "" {
		return
	}

	// Postgres driver accepts only paths to certificates
	var files []string
	cleanup = func() {
		for _, f := range files {
			os.Remove(f)
		}
	}
	for _, pem := range []string{dbConfig.ClientCert, dbConfig.ClientKey, dbConfig.CaCert} {
		var f *os.File
		f, err = os.CreateTemp("", "pg-*.pem")
		if err != nil {
			return
		}
		files = append(files, f.Name())
		_, err = f.WriteString(pem)
		f.Close()
		if err != nil {
			return
		}
	}
	out += fmt.Sprintf(" sslcert=%s sslkey=%s sslrootcert=%s", files[0], files[1], files[2])
	return
}

func Connect(ctx context.Context, dbConfig *config.Database, username, password, applicationName string) (self *gorm.DB, err error) {
	log := l.NewSublogger("db")

	dsn, cleanup, err := dsn(dbConfig, username, password, applicationName)
	defer cleanup()
	if err != nil {
		return
	}

	self, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  NewGormLogger(),
		NowFunc: NowFunc,
	})
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxIdleTime(dbConfig.ConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	err = Ping(ctx, dbConfig, self)
	if err != nil {
		return
	}

	log.WithField("application", applicationName).Debug("Connected to database")
	return
}

func NewConnection(ctx context.Context, config *config.Config, applicationName string) (self *gorm.DB, err error) {
	if config.Database.MigrateOnStart {
		err = Migrate(ctx, config)
		if err != nil {
			return
		}
	}

	return Connect(ctx, &config.Database, config.Database.User, config.Database.Password, applicationName)
}

func Migrate(ctx context.Context, config *config.Config) (err error) {
	log := l.NewSublogger("db-migrate")

	user, password := config.Database.MigrationUser, config.Database.MigrationPassword
	if user == "" || password == "" {
		log.Debug("Migration user not set, using the default user")
		user, password = config.Database.User, config.Database.Password
	}

	// Run migrations
	migrations := &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(sql_migrations.FS),
	}

	self, err := Connect(ctx, &config.Database, user, password, "migration")
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}
	defer db.Close()

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return
	}

	log.WithField("num", n).Info("Applied migrations")

	config.Database.MigrationUser = ""
	config.Database.MigrationPassword = ""

	return
}

func Ping(ctx context.Context, dbConfig *config.Database, db *gorm.DB) (err error) {
	if dbConfig.PingTimeout < 0 {
		// Ping disabled
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbConfig.PingTimeout)
	defer cancel()

	return sqlDB.PingContext(dbCtx)
}

// All models, in the order they can be created
func All() []interface{} {
	return []interface{}{
		&User{},
		&Wallet{},
		&AuthNonce{},
		&Job{},
		&JobMilestone{},
		&JobBid{},
		&JobApplication{},
		&Gig{},
		&Escrow{},
		&EscrowStateHistory{},
		&ChainTx{},
		&Conversation{},
		&Message{},
		&MessageReceipt{},
		&Notification{},
		&OutboxMessage{},
		&SystemSettings{},
		&SystemState{},
		&ContactMessage{},
	}
}
