package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/intraview/internal/coach"
	"github.com/spigell/intraview/internal/interview"
	"github.com/spigell/intraview/internal/utils"
)

const (
	PromptAnswer       = "Answer"
	PromptReset        = "Reset the answer"
	PromptShowFeedback = "Show feedback"
	PromptScores       = "Show scores"
	PromptRetry        = "Retry question generation"
	PromptBack         = "back"
	PromptExit         = "exit"

	localUser    = "local"
	pollInterval = time.Second
)

var errExit = errors.New("exit requested")

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice an interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		practice(cmd)
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().StringP("job-file", "f", "", "file with the job description. Asked interactively when unset.")
	practiceCmd.Flags().StringP("run", "r", "", "continue an existing run instead of starting a new one")
	practiceCmd.Flags().StringP("user", "u", localUser, "user id the new run belongs to")
}

// practice runs the coach service in-process and drives it with prompts.
func practice(cmd *cobra.Command) {
	log := mustLogger("practice")
	defer log.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, config, log)
	if err != nil {
		log.Fatal("initializing the application", zap.Error(err))
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	workerCtx, stopWorker := context.WithCancel(gctx)
	g.Go(func() error { return a.worker.Run(workerCtx) })

	err = session(ctx, cmd, a.service, log)
	stopWorker()
	_ = g.Wait()

	if err != nil && !errors.Is(err, errExit) && !errors.Is(err, promptui.ErrInterrupt) {
		log.Fatal("practice session failed", zap.Error(err))
	}

	log.Info("bye")
}

func session(ctx context.Context, cmd *cobra.Command, svc *coach.Service, log *zap.Logger) error {
	runID, _ := cmd.Flags().GetString("run")

	if runID == "" {
		jobDescription, err := readJobDescription(cmd)
		if err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		runID, err = svc.StartReport(ctx, user, jobDescription)
		if err != nil {
			return err
		}
		log.Info("run started, generating questions", zap.String("run_id", runID))
	}

	for {
		run, err := waitForRun(ctx, svc, runID, func(r *interview.Run) bool { return !r.Status.IsPending() })
		if err != nil {
			return err
		}

		if run.Status == interview.StatusFailed {
			log.Warn("question generation failed", zap.String("reason", run.Error))

			_, action, err := (&promptui.Select{Label: "What next?", Items: []string{PromptRetry, PromptExit}}).Run()
			if err != nil {
				return err
			}
			if action == PromptExit {
				return errExit
			}
			if _, err := svc.RetryGeneration(ctx, runID); err != nil {
				return err
			}
			continue
		}

		log.Info("questions are ready",
			zap.String("job_title", run.JobTitle),
			zap.String("employer", run.Employer),
			zap.Int("questions", run.QuestionCount()),
		)

		return chooseQuestion(ctx, svc, runID, log)
	}
}

func readJobDescription(cmd *cobra.Command) (string, error) {
	if file, _ := cmd.Flags().GetString("job-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		return string(data), nil
	}

	prompt := promptui.Prompt{
		Label: "Paste the job description (single line) or a path to a file",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("job description is required")
			}
			return nil
		},
	}

	input, err := prompt.Run()
	if err != nil {
		return "", err
	}

	if data, err := os.ReadFile(strings.TrimSpace(input)); err == nil {
		return string(data), nil
	}
	return input, nil
}

func chooseQuestion(ctx context.Context, svc *coach.Service, runID string, log *zap.Logger) error {
	for {
		run, err := svc.FetchRun(ctx, runID)
		if err != nil {
			return err
		}

		var ids []string
		items := make([]string, 0)
		for _, category := range run.Questions {
			for _, q := range category.Questions {
				items = append(items, fmt.Sprintf("%s %s / %s", scoreLabel(q.Score), category.Category, q.Question))
				ids = append(ids, q.ID)
			}
		}

		questionPrompt := promptui.Select{
			Label: fmt.Sprintf("Run score %.2f. Choose a question and press ENTER", run.Score),
			Items: append(items, PromptScores, PromptExit),
			Size:  10,
		}

		idx, selected, err := questionPrompt.Run()
		if err != nil {
			return err
		}

		if idx < len(ids) {
			if err := questionMenu(ctx, svc, runID, ids[idx], log); err != nil {
				return err
			}
			continue
		}

		switch selected {
		case PromptExit:
			return errExit
		case PromptScores:
			reportScores(run, log)
		}
	}
}

func questionMenu(ctx context.Context, svc *coach.Service, runID, questionID string, log *zap.Logger) error {
	loc := interview.Locator{QuestionID: questionID}

	for {
		run, err := svc.FetchRun(ctx, runID)
		if err != nil {
			return err
		}
		_, q, ok := run.FindByID(questionID)
		if !ok {
			return fmt.Errorf("question %s vanished from run %s", questionID, runID)
		}

		items := []string{PromptAnswer}
		if q.HasAnswer() {
			items = append(items, PromptShowFeedback, PromptReset)
		}

		_, action, err := (&promptui.Select{Label: q.Question, Items: append(items, PromptBack)}).Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptBack:
			return nil
		case PromptShowFeedback:
			reportFeedback(q, log)
		case PromptReset:
			if _, err := svc.RetryQuestion(ctx, runID, loc); err != nil {
				return err
			}
			log.Info("answer cleared")
		case PromptAnswer:
			answer, err := (&promptui.Prompt{Label: "Your answer"}).Run()
			if err != nil {
				return err
			}

			updated, err := svc.UpdateAnswer(ctx, runID, loc, answer)
			if errors.Is(err, coach.ErrInvalidArgument) {
				log.Warn("answer rejected", zap.Error(err))
				continue
			}
			if err != nil {
				return err
			}

			log.Info("scoring the answer")
			scored, err := waitForRun(ctx, svc, runID, func(r *interview.Run) bool {
				_, cur, ok := r.FindByID(questionID)
				return !ok || cur.Version != updated.Version || cur.State != interview.StatePending
			})
			if err != nil {
				return err
			}
			if _, cur, ok := scored.FindByID(questionID); ok {
				reportFeedback(cur, log)
			}
		}
	}
}

// waitForRun polls the run until done reports true.
func waitForRun(ctx context.Context, svc *coach.Service, runID string, done func(*interview.Run) bool) (*interview.Run, error) {
	for {
		run, err := svc.FetchRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if done(run) {
			return run, nil
		}
		if err := utils.WaitFor(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

func reportFeedback(q *interview.Question, log *zap.Logger) {
	switch q.State {
	case interview.StatePending:
		log.Info("feedback is not ready yet")
		return
	case interview.StateFailed:
		log.Warn("scoring failed, answer again to retry", zap.String("reason", q.Error))
		return
	}

	fields := []zap.Field{zap.String("score", scoreLabel(q.Score))}
	if q.Feedback != nil {
		fields = append(fields, zap.String("feedback", *q.Feedback))
	}
	if q.Areas != nil {
		fields = append(fields,
			zap.Float64("clarity", q.Areas.Clarity.Score),
			zap.Float64("relevance", q.Areas.Relevance.Score),
			zap.Float64("structure", q.Areas.Structure.Score),
			zap.Float64("competency", q.Areas.Competency.Score),
		)
	}
	if len(q.Suggestions) > 0 {
		fields = append(fields, zap.Strings("suggestions", q.Suggestions))
	}
	if q.ImprovedAnswer != nil {
		fields = append(fields, zap.String("improved_answer", *q.ImprovedAnswer))
	}
	if q.Usage != nil {
		fields = append(fields, zap.Int("tokens", *q.Usage))
	}

	log.Info("feedback", fields...)
}

func reportScores(run *interview.Run, log *zap.Logger) {
	for _, category := range run.Questions {
		log.Info("category",
			zap.String("name", category.Category),
			zap.String("score", scoreLabel(category.Score)),
			zap.Int("questions", len(category.Questions)),
		)
	}
	log.Info("run", zap.Float64("score", run.Score))
}

func scoreLabel(score *float64) string {
	if score == nil {
		return "[ -- ]"
	}
	return fmt.Sprintf("[%.2f]", *score)
}
