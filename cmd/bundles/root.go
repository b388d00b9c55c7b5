package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stackb/scriptbundles/pkg/bundlemanager"
	"github.com/stackb/scriptbundles/pkg/config"
	"github.com/stackb/scriptbundles/pkg/logger"
	"github.com/stackb/scriptbundles/pkg/procutil"
	"github.com/stackb/scriptbundles/pkg/registry"
	"github.com/stackb/scriptbundles/pkg/starlarkeval"
)

// env holds the flags and the loaded manager shared by subcommands.
type env struct {
	configFile string
	appDir     string
	userDir    string
	projects   []string
	loadPaths  []string
	logLevel   string

	logger  zerolog.Logger
	cfg     *config.Config
	manager *bundlemanager.Manager
	engine  *starlarkeval.Engine
}

func newRootCmd(log zerolog.Logger) *cobra.Command {
	e := &env{logger: log}

	root := &cobra.Command{
		Use:   "bundles",
		Short: "Inspect script bundles",
		Long: `bundles loads application, user and project bundles and answers
queries about them: which bundles are visible, which commands apply to a
scope, which scope a file name maps to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.configFile, "config", defaultConfigFile(), "configuration file (TOML)")
	flags.StringVar(&e.appDir, "app", "", "application bundles directory (overrides config)")
	flags.StringVar(&e.userDir, "user", "", "user bundles directory (overrides config)")
	flags.StringArrayVar(&e.projects, "project", nil, "project root; may be repeated (overrides config)")
	flags.StringArrayVar(&e.loadPaths, "load-path", nil, "extra library directory for every script; may be repeated")
	flags.StringVar(&e.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		newListCmd(e),
		newShowCmd(e),
		newScopeCmd(e),
		newFileTypeCmd(e),
		newCommandsCmd(e),
		newWatchCmd(e),
		newConfigCmd(e),
	)
	return root
}

// defaultConfigFile is $BUNDLES_CONFIG, else bundles.toml in the working
// directory.
func defaultConfigFile() string {
	return procutil.GetEnv(procutil.BUNDLES_CONFIG, "bundles.toml")
}

// setup reads the configuration, applies flag overrides, and loads every
// bundle.  Script failures are logged; they do not fail the command.
func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(e.configFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("app") {
		cfg.ApplicationBundlesPath = e.appDir
	}
	if flags.Changed("user") {
		cfg.UserBundlesPath = e.userDir
	}
	if flags.Changed("project") {
		cfg.ProjectRoots = e.projects
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = e.logLevel
	} else if level, ok := procutil.LookupEnv(procutil.BUNDLES_LOG_LEVEL); ok {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	e.cfg = cfg
	e.logger = e.logger.Level(cfg.Level())

	reg := registry.New()
	e.manager = bundlemanager.New(
		bundlemanager.WithLogger(e.logger),
		bundlemanager.WithSink(logger.NewZerologSink(e.logger)),
		bundlemanager.WithRegistry(reg),
		bundlemanager.WithApplicationBundlesPath(cfg.ApplicationBundlesPath),
		bundlemanager.WithUserBundlesPath(cfg.UserBundlesPath),
		bundlemanager.WithProjectSource(bundlemanager.StaticProjects(cfg.ProjectRoots)),
	)
	e.engine = starlarkeval.NewEngine(e.manager, reg,
		starlarkeval.WithLogger(e.logger),
		starlarkeval.WithContributedLoadPaths(cfg.ContributedLoadPaths...),
	)
	for _, p := range e.loadPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("load path %s: %w", p, err)
		}
		e.engine.AddContributedLoadPath(abs)
	}
	cfg.ContributedLoadPaths = e.engine.ContributedLoadPaths()
	e.manager.SetScriptEngine(e.engine)

	if err := e.manager.LoadBundles(); err != nil {
		e.logger.Warn().Err(err).Msg("some bundles failed to load")
	}
	e.logger.Debug().Strs("bundles", e.manager.GetBundleNames()).Msg("loaded")
	return nil
}

// roots returns every directory whose children are bundle directories.
func (e *env) roots() []string {
	roots := []string{e.manager.ApplicationBundlesPath(), e.manager.UserBundlesPath()}
	for _, p := range e.manager.ProjectRoots() {
		roots = append(roots, filepath.Join(p, bundlemanager.ProjectBundlesDirectoryName))
	}
	return roots
}
