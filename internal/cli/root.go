// Package cli is the wedplan command line: cobra commands over the planner
// service, the planner collections and the reminder loop.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sandeepkv93/wedplan/internal/config"
	"github.com/sandeepkv93/wedplan/internal/logging"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/storage"
	"github.com/sandeepkv93/wedplan/internal/store"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

// Env is what a run reads from the outside world.
type Env struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	WorkDir string
}

type globalOptions struct {
	configPath string
	user       string
	storage    string
	dataDir    string
	dsn        string
	logLevel   string
}

func (o *globalOptions) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (default ./"+config.FileName+")")
	fs.StringVarP(&o.user, "user", "u", "", "couple the timeline belongs to")
	fs.StringVar(&o.storage, "storage", "", "storage backend: sqlite, postgres or file")
	fs.StringVar(&o.dataDir, "data-dir", "", "directory for databases and timeline files")
	fs.StringVar(&o.dsn, "dsn", "", "postgres connection string")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
}

// apply lays the flags the user actually set over cfg.
func (o *globalOptions) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("user") {
		cfg.User = o.user
	}
	if fs.Changed("storage") {
		cfg.Storage = o.storage
	}
	if fs.Changed("data-dir") {
		cfg.DataDir = o.dataDir
		cfg.DBPath = filepath.Join(o.dataDir, "timeline.db")
		cfg.PlannerDBPath = filepath.Join(o.dataDir, "planner.db")
	}
	if fs.Changed("dsn") {
		cfg.PostgresDSN = o.dsn
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
}

// app holds the resolved config and lazily opened backends of one run.
type app struct {
	env  Env
	cfg  config.Config
	log  *slog.Logger
	bus  *notify.Bus
	svc  *planner.Service

	collections *planner.Collections
	closers     []func() error
}

func (a *app) planner(ctx context.Context) (*planner.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	repo, closer, err := openRepository(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)

	reg := timeline.NewRegistry()
	if a.cfg.TemplatesFile != "" {
		if err := reg.LoadFile(a.cfg.TemplatesFile); err != nil {
			return nil, err
		}
	}
	a.svc = planner.NewService(repo,
		planner.WithPublisher(a.bus),
		planner.WithGenerator(timeline.NewGenerator(reg, nil)),
		planner.WithLogger(logging.Component(a.log, "planner")),
	)
	return a.svc, nil
}

func (a *app) plannerCollections() (*planner.Collections, error) {
	if a.collections != nil {
		return a.collections, nil
	}
	db, err := store.OpenGorm(a.cfg.PlannerDBPath, logging.Component(a.log, "store"))
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	guests, err := store.NewGorm[model.Guest](db)
	if err != nil {
		return nil, err
	}
	budget, err := store.NewGorm[model.BudgetItem](db)
	if err != nil {
		return nil, err
	}
	vendors, err := store.NewGorm[model.Vendor](db)
	if err != nil {
		return nil, err
	}
	a.collections = &planner.Collections{Guests: guests, Budget: budget, Vendors: vendors}
	return a.collections, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.bus != nil {
		a.bus.Close()
	}
	return errors.Join(errs...)
}

func openRepository(ctx context.Context, cfg config.Config) (storage.Repository, func() error, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		repo, err := storage.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.StorageFile:
		repo, err := storage.NewFileRepository(filepath.Join(cfg.DataDir, "timelines"))
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		repo, err := storage.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
}

// newRootCommand builds the command tree. Config is resolved in the
// persistent pre-run, with flags applied over files and environment.
func newRootCommand(a *app) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "wedplan",
		Short:         "Plan a wedding timeline from templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadInput{
				WorkDir:    a.env.WorkDir,
				ConfigPath: opts.configPath,
				Getenv:     a.env.Getenv,
			})
			if err != nil {
				return err
			}
			opts.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(a.env.Stderr, cfg.LogLevel)
			return nil
		},
	}
	opts.bind(root.PersistentFlags())
	root.SetOut(a.env.Stdout)
	root.SetErr(a.env.Stderr)

	root.AddCommand(
		newInitCommand(a),
		newShowCommand(a),
		newAddCommand(a),
		newUpdateCommand(a),
		newRemoveCommand(a),
		newCompleteCommand(a),
		newTaskCommand(a),
		newProgressCommand(a),
		newExportCommand(a),
		newRescheduleCommand(a),
		newTemplatesCommand(a),
		newGuestsCommand(a),
		newBudgetCommand(a),
		newVendorsCommand(a),
		newRemindCommand(a),
		newTUICommand(a),
	)
	return root
}

// Run executes wedplan with args and returns the process exit code.
func Run(ctx context.Context, args []string, env Env) int {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	if env.Getenv == nil {
		env.Getenv = os.Getenv
	}
	a := &app{env: env, bus: notify.NewBus(), log: logging.Discard()}
	root := newRootCommand(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "wedplan: %v\n", err)
		return 1
	}
	return 0
}
