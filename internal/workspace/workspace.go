// Package workspace wires the configuration, the database, the blob
// store and the tracker living inside a home directory.
package workspace

import (
	"context"
	"io/fs"
	"os"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/config"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/blobstore"
	"github.com/pricelab/basiccleaning/internal/cleaning"
	"github.com/pricelab/basiccleaning/internal/database"
	"github.com/pricelab/basiccleaning/internal/dataset"
	"github.com/pricelab/basiccleaning/internal/model"
	"github.com/pricelab/basiccleaning/internal/tracking"
	"github.com/pricelab/basiccleaning/utils"
)

// Workspace contains the CLI context.
type Workspace struct {
	config *config.Config
	db     *database.Database
	blobs  *blobstore.FS
	store  *artifact.Store

	home       string
	configPath string
	logger     model.Logger
}

// New creates a new workspace. An empty configPath means the config
// file inside home.
func New(configPath, home string) *Workspace {
	return &Workspace{
		config:     &config.Config{},
		configPath: configPath,
		home:       home,
		logger:     log.Log,
	}
}

// Init creates the home layout if needed, then loads the config and
// opens the database.
func (w *Workspace) Init() error {
	var err error

	if err = MaybeInitializeHome(w.home); err != nil {
		return err
	}

	if w.configPath != "" {
		log.Debugf("Reading config file from %s", w.configPath)
		w.config, err = config.ReadConfig(w.configPath)
	} else {
		log.Debug("Reading default config file")
		w.config, err = InitDefaultConfig(w.home)
	}
	if err != nil {
		return err
	}
	log.Debugf("Using config file %s", w.config.Path())

	dbPath := utils.DBPath(w.home, "main")
	log.Debugf("Connecting to database sqlite3://%s", dbPath)
	w.db, err = database.Connect(dbPath)
	if err != nil {
		return err
	}

	w.blobs, err = blobstore.New(utils.BlobsDir(w.home))
	if err != nil {
		w.db.Close()
		return errors.Wrap(err, "creating blob store")
	}

	storeConfig := artifact.Config{
		DB:           w.db,
		Blobs:        w.blobs,
		ArtifactsDir: utils.ArtifactsDir(w.home),
		Logger:       w.logger,
	}
	if w.config.Store.ShowProgress {
		storeConfig.ProgressWriter = os.Stderr
	}
	w.store = artifact.New(storeConfig)
	return nil
}

// Close closes the database.
func (w *Workspace) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Config returns the configuration.
func (w *Workspace) Config() *config.Config {
	return w.config
}

// DB returns the database.
func (w *Workspace) DB() *database.Database {
	return w.db
}

// Store returns the artifact store.
func (w *Workspace) Store() *artifact.Store {
	return w.store
}

// Tracker returns a tracker for the configured project.
func (w *Workspace) Tracker() *tracking.Tracker {
	return &tracking.Tracker{
		DB:      w.db,
		Store:   w.store,
		Project: w.config.Project,
		Logger:  w.logger,
	}
}

// NewPipeline returns a cleaning pipeline configured from the config
// file, opening its runs with the workspace tracker.
func (w *Workspace) NewPipeline() *cleaning.Pipeline {
	tracker := w.Tracker()
	return &cleaning.Pipeline{
		OpenRun: func(ctx context.Context, jobType string) (cleaning.Run, error) {
			run, err := tracker.Init(ctx, jobType)
			if err != nil {
				return nil, err
			}
			return run, nil
		},
		Logger:            w.logger,
		DatePolicy:        dataset.DatePolicy(w.config.Cleaning.DatePolicy),
		AllowMissingPrice: w.config.Cleaning.AllowMissingPrice,
		MetricsFile:       w.config.Tracking.MetricsFile,
	}
}

// MaybeInitializeHome does the setup for a new home directory.
func MaybeInitializeHome(home string) error {
	for _, d := range utils.RequiredDirs(home) {
		if _, e := os.Stat(d); e != nil {
			if err := os.MkdirAll(d, 0700); err != nil {
				return err
			}
		}
	}
	return nil
}

// InitDefaultConfig reads the config inside home or creates it if missing.
func InitDefaultConfig(home string) (*config.Config, error) {
	configPath := utils.ConfigPath(home)
	c, err := config.ReadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("writing default config to %s", configPath)
		return config.WriteDefault(configPath)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
