// Package controller implements the initializer that opens the database of
// the node.
package controller

import (
	"path/filepath"

	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/core/store/kv"
	"go.ezyvote.org/ezyvote/internal/config"
	"golang.org/x/xerrors"
)

// dbController opens the database file of the configuration in the config
// folder and injects it.
//
// - implements node.Initializer
type dbController struct {
	open func(path string) (kv.DB, error)
}

// NewController returns the initializer of the database.
func NewController() node.Initializer {
	return dbController{open: kv.New}
}

// SetCommands implements node.Initializer. The database has no command.
func (dbController) SetCommands(node.Builder) {}

// OnStart implements node.Initializer.
func (c dbController) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	path := filepath.Join(flags.Path(node.ConfigFlag), cfg.Database)

	db, err := c.open(path)
	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	ezyvote.Logger.Info().Str("path", path).Msg("database opened")

	inj.Inject(db)

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (dbController) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	return nil
}
