// Package daemon assembles the long-running service: database, directory
// connections, sync engine, authentication bridge and web service.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/dsn"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/models"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/ldap"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service

	// Registry and Syncer are also used by the one-shot sync command,
	// which builds a Daemon without starting the web service.
	Registry *ldap.Registry
	Syncer   *ldap.Syncer
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// WaitShutdown blocks until the web service finished its graceful shutdown.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
	d.Registry.Close()
}

// OpenDB opens the configured database engine and migrates the
// synchronized tables. Mapped columns beyond the base schema must already
// exist, migration only covers the columns the engine always manages.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case "mysql":
		dialector = gormmysql.Open(dsn.Create(cfg))
	case "postgres":
		dialector = gormpostgres.Open(dsn.CreatePostgres(cfg))
	default:
		dialector = sqlite.Open(cfg.DB.Name)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.UserGroup{},
		&models.Member{},
		&models.MemberGroup{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := OpenDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database setup failed")
		return nil
	}

	registry := ldap.NewRegistry(cfg)
	st := store.New(db)
	encoder := models.NewCredentialEncoder(cfg.DB.PasswordHash)
	syncer := ldap.NewSyncer(cfg, registry, st, encoder)
	bridge := ldap.NewBridge(cfg, registry, syncer)

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, bridge),
		Registry:   registry,
		Syncer:     syncer,
	}
}
