package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"resumeqa/internal/config"
	"resumeqa/internal/logging"
	"resumeqa/internal/session"
	"resumeqa/internal/tui"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "resumeqa [resume-file]",
	Short: "Ask questions about a resume",
	Long: `resumeqa loads a resume (PDF or TXT), indexes it and answers questions
about the candidate with a retrieval-augmented language model.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/resumeqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.AddCommand(askCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// the UI owns the terminal, so logs always go to a file
	logFile := cfg.Log.File
	if logFile == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return err
		}
		logFile = filepath.Join(dir, "resumeqa.log")
	}
	closer, err := logging.Setup(cfg.Log.Level, logFile, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}
	ctrl := session.NewController(svc)
	defer closeSession(cmd.Context(), ctrl)

	var path string
	if len(args) == 1 {
		path = args[0]
	}
	log.Info().Str("config", cfgPath).Msg("starting ui")
	_, err = tea.NewProgram(tui.New(ctrl, path), tea.WithAltScreen()).Run()
	return err
}

func closeSession(ctx context.Context, ctrl *session.Controller) {
	if err := ctrl.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("close session")
	}
}
