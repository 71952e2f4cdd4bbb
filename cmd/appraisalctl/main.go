package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yourorg/appraisal-api/internal/config"
	"github.com/yourorg/appraisal-api/internal/logger"
	"github.com/yourorg/appraisal-api/internal/store"
)

var (
	cfgFile string
	appCfg  config.Config
	v       = viper.New()
	now     = time.Now
	rootCmd = &cobra.Command{
		Use:   "appraisalctl",
		Short: "Operate the appraisal service from the command line",
		Long: `appraisalctl runs valuations against local scenario files, applies the
database schema and recomputes stored appraisals.

Configuration comes from appraisal.yaml (or --config) and APPRAISAL_* variables.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./appraisal.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(revalueCmd())
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	c, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return err
	}
	if _, err := logger.Setup(c.Logging.Level, c.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	appCfg = c
	return nil
}

// openStore connects and migrates; callers close the store.
func openStore(ctx context.Context) (*store.Store, error) {
	if err := config.Require(map[string]string{"database.dsn": appCfg.Database.DSN}); err != nil {
		return nil, err
	}
	st, err := store.Open(appCfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	slog.Debug("database connected")
	return st, nil
}
