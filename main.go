package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/luispater/webdriverkit/internal/api"
	"github.com/luispater/webdriverkit/internal/browser/chrome"
	"github.com/luispater/webdriverkit/internal/config"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/logging"
	"github.com/luispater/webdriverkit/internal/runner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	headless   bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "webdriverkit",
	Short: "Browser automation with explicit waits and YAML scenarios",
	Long: `Drive a local Chrome through YAML scenarios.

Examples:
  webdriverkit run login checkout          # Run scenarios from the scenario directory
  webdriverkit run ./flows/search.yaml     # Run a scenario file directly
  webdriverkit serve                       # Expose scenarios over HTTP`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <scenario>...",
	Short: "Run scenarios in order on one browser session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control API",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run Chrome without a window (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging and scenario reload (overrides the configuration)")
	rootCmd.AddCommand(runCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is everything a command needs, built from the configuration.
type app struct {
	cfg     *config.AppConfig
	manager *chrome.Manager
	driver  *driver.Driver
	runner  *runner.RunnerManager
	logFile io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg = config.Defaults()
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = headless
	}
	if cmd.Flags().Changed("debug") && debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}

	logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}

	keepAlive := cfg.Driver.KeepAlive == nil || *cfg.Driver.KeepAlive
	manager := chrome.NewManager(cfg.Browser, cfg.Headless)
	d := driver.New(driver.OptionsFromConfig(cfg, manager.Factory(keepAlive)))

	rm, err := runner.NewRunnerManager(cfg.ScenarioDir, d, cfg.Debug)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	return &app{cfg: cfg, manager: manager, driver: d, runner: rm, logFile: logFile}, nil
}

func (a *app) Close() {
	if err := a.driver.Quit(); err != nil {
		log.Warnf("Error quitting driver: %v", err)
	}
	if err := a.manager.Close(); err != nil {
		log.Warnf("Error closing browser manager: %v", err)
	}
	_ = a.logFile.Close()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	names := make([]string, 0, len(args))
	for _, arg := range args {
		ext := strings.ToLower(filepath.Ext(arg))
		if ext != ".yaml" && ext != ".yml" {
			names = append(names, arg)
			continue
		}
		name, errLoad := a.runner.LoadFile(arg)
		if errLoad != nil {
			return errLoad
		}
		names = append(names, name)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("Starting WebDriverKit scenario run...")
	return a.driver.Run(ctx, func(ctx context.Context, _ *driver.Driver) error {
		for _, name := range names {
			if errRun := a.runner.Run(ctx, name); errRun != nil {
				return fmt.Errorf("scenario %s: %w", name, errRun)
			}
		}
		return nil
	})
}

func serve(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err = a.driver.Init(ctx); err != nil {
		return fmt.Errorf("could not launch browser: %w", err)
	}
	log.Infof("Browser ready, %d scenarios loaded", len(a.runner.Scenarios()))

	srv := api.NewServer(&api.ServerConfig{Port: a.cfg.ApiPort, Debug: a.cfg.Debug}, a.driver, a.runner)
	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err = srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
