package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Page struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (self Page) apply(db *gorm.DB) *gorm.DB {
	limit := self.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := self.Offset
	if offset < 0 {
		offset = 0
	}
	return db.Limit(limit).Offset(offset)
}

// Fields shared by all services
type base struct {
	config *config.Config
	db     *gorm.DB
	log    *logrus.Entry
	fsm    *fsm.Table
	code   string
}

func newBase(config *config.Config, db *gorm.DB, table *fsm.Table, name string) base {
	return base{
		config: config,
		db:     db,
		log:    logger.NewSublogger(name + "-service"),
		fsm:    table,
		code:   apperr.ServiceCode(name),
	}
}

// Passes AppErrors through, anything else becomes <NAME>_SERVICE_ERROR
func (self *base) wrap(err *error) {
	*err = apperr.Wrap(*err, self.code, self.log)
}

// Runs f in the given transaction or in a new one
func (self *base) inTx(ctx context.Context, tx *gorm.DB, f func(tx *gorm.DB) error) error {
	if tx != nil {
		return f(tx)
	}
	return self.db.WithContext(ctx).Transaction(f)
}

// Loads a row by id, 404 when it doesn't exist
func first[T any](ctx context.Context, db *gorm.DB, entity string, id string) (out *T, err error) {
	out = new(T)
	err = db.WithContext(ctx).Where("id = ?", id).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound(entity)
		}
		return nil, err
	}
	return
}

// Checks a row with the id exists, 404 when it doesn't
func exists[T any](ctx context.Context, db *gorm.DB, entity string, id string) error {
	var count int64
	err := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// All services, wired together
type Services struct {
	Users         *Users
	Wallets       *Wallets
	Auth          *Auth
	Jobs          *Jobs
	Milestones    *Milestones
	Bids          *Bids
	Applications  *Applications
	Gigs          *Gigs
	Escrows       *Escrows
	ChainTxs      *ChainTxs
	Settings      *Settings
	Contact       *Contact
	Chat          *Chat
	Notifications *Notifications
	Outbox        *Outbox
}

func New(config *config.Config, db *gorm.DB, emitter Emitter) (self *Services) {
	table := fsm.Default(config.Chat.IsLenient())

	self = new(Services)
	self.Notifications = NewNotifications(config, db)
	self.Outbox = NewOutbox(config, db)
	self.Users = NewUsers(config, db)
	self.Wallets = NewWallets(config, db)
	self.Auth = NewAuth(config, db, auth.NewTokens(config))
	self.Chat = NewChat(config, db, table, self.Notifications, emitter)
	self.Jobs = NewJobs(config, db, table, self.Notifications)
	self.Milestones = NewMilestones(config, db, table, self.Notifications)
	self.Bids = NewBids(config, db, table, self.Notifications, self.Chat)
	self.Applications = NewApplications(config, db, table, self.Notifications, self.Milestones)
	self.Gigs = NewGigs(config, db)
	self.Settings = NewSettings(config, db)
	self.Escrows = NewEscrows(config, db, table, self.Notifications)
	self.ChainTxs = NewChainTxs(config, db)
	self.Contact = NewContact(config, db)
	return
}
