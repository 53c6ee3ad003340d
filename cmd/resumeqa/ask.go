package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resumeqa/internal/logging"
	"resumeqa/internal/session"
)

var (
	askFile     string
	askQuestion string
	askPreset   int
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question about a resume and exit",
	Long: `ask indexes a single resume and prints the answer to one question,
either free text (--question) or one of the predefined questions (--preset 1-6).`,
	Example: `  resumeqa ask --file cv.pdf --preset 5
  resumeqa ask --file cv.txt --question "Has the candidate led a team?"`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "resume file (.pdf or .txt)")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask")
	askCmd.Flags().IntVarP(&askPreset, "preset", "p", 0, "number of a predefined question (1-6)")
	_ = askCmd.MarkFlagRequired("file")
}

func runAsk(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	var selected string
	if askPreset != 0 {
		q, ok := session.Preset(askPreset)
		if !ok {
			return fmt.Errorf("--preset must be between 1 and %d", len(session.PredefinedQuestions))
		}
		selected = q
	}
	if _, ok := session.ResolveQuestion(selected, askQuestion); !ok {
		return errors.New("one of --question or --preset is required")
	}

	data, err := os.ReadFile(askFile)
	if err != nil {
		return errors.New(session.UploadError(err))
	}
	svc, err := buildService(cfg)
	if err != nil {
		return err
	}
	ctrl := session.NewController(svc)
	defer closeSession(cmd.Context(), ctrl)

	ctx := cmd.Context()
	if _, err := ctrl.Upload(ctx, filepath.Base(askFile), data); err != nil {
		return errors.New(session.UploadError(err))
	}
	ans, err := ctrl.Ask(ctx, selected, askQuestion)
	if err != nil {
		return errors.New(session.AnswerError(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Question: %s\n\nAnswer: %s\n", ans.Question, ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for i, r := range ans.Sources {
			fmt.Fprintf(out, "[%d] chunk %d (score %.3f)\n%s\n", i+1, r.Chunk.Index+1, r.Score, r.Chunk.Text)
		}
	}
	return nil
}
