package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/headhunter"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/jobs"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/store/memory"
)

const (
	defaultCandidate  = "practice"
	searchResultLimit = 20
)

var errNoJobs = errors.New("no jobs to choose from")

var practiceCmd = &cobra.Command{
	Use:     "practice",
	Short:   "Run an interview in the terminal",
	PreRunE: bindMaxQuestions,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return practice(cmd)
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().String("job", "", "job id to interview for (asks when empty)")
	practiceCmd.Flags().String("candidate", defaultCandidate, "candidate id")
	practiceCmd.Flags().String("search", "", "vacancy search text when jobs come from headhunter")
	practiceCmd.Flags().Int("max-questions", 0, "questions per interview (1-20, default 8)")

}

func practice(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Error("getting a config", zap.Error(err))
		return err
	}

	jobLookup, err := newJobs(config.Jobs, logger)
	if err != nil {
		logger.Error("creating job source", zap.Error(err))
		return err
	}

	jobID, _ := cmd.Flags().GetString("job")
	if strings.TrimSpace(jobID) == "" {
		search, _ := cmd.Flags().GetString("search")
		jobID, err = pickJob(ctx, jobLookup, search)
		if err != nil {
			return err
		}
	}
	candidateID, _ := cmd.Flags().GetString("candidate")

	engine, err := newEngine(ctx, config, engineParts{Store: memory.New(), Jobs: jobLookup}, logger)
	if err != nil {
		logger.Error("creating interview engine", zap.Error(err))
		return err
	}

	session, _, err := engine.Start(ctx, jobID, candidateID)
	if err != nil {
		return fmt.Errorf("start interview: %w", err)
	}

	fmt.Fprintf(out, "Interview for %s (%d questions). Press Ctrl+C to stop.\n", session.Job.Title, session.MaxQuestions)

	question := session.CurrentQuestion
	for turn := 1; question != ""; turn++ {
		fmt.Fprintf(out, "\nQuestion %d/%d: %s\n", turn, session.MaxQuestions, question)

		answerPrompt := promptui.Prompt{Label: "Answer"}
		answer, err := answerPrompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Fprintln(out, "\nInterview stopped.")
				break
			}
			return err
		}

		res, err := engine.SubmitAnswer(ctx, session.ID, answer)
		if err != nil {
			return fmt.Errorf("submit answer: %w", err)
		}
		fmt.Fprintf(out, "Score: %d/%d. %s\n", res.Score, interview.MaxScore, res.Notes)
		question = res.NextQuestion
	}

	final, err := engine.State(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	printSummary(out, final)
	return nil
}

func pickJob(ctx context.Context, lookup interview.JobLookup, search string) (string, error) {
	switch source := lookup.(type) {
	case *jobs.Catalog:
		return pickCatalogJob(source)
	case *headhunter.Client:
		return pickVacancy(ctx, source, search)
	default:
		return "", errors.New("--job is required for this job source")
	}
}

func pickCatalogJob(catalog *jobs.Catalog) (string, error) {
	list := catalog.List()
	if len(list) == 0 {
		return "", errNoJobs
	}

	items := make([]string, 0, len(list))
	for _, job := range list {
		items = append(items, fmt.Sprintf("%s: %s", job.ID, job.Title))
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
	}
	idx, _, err := jobPrompt.Run()
	if err != nil {
		return "", err
	}
	return list[idx].ID, nil
}

func pickVacancy(ctx context.Context, hh *headhunter.Client, search string) (string, error) {
	if strings.TrimSpace(search) == "" {
		searchPrompt := promptui.Prompt{
			Label: "Search vacancies",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("search text is required")
				}
				return nil
			},
		}
		var err error
		search, err = searchPrompt.Run()
		if err != nil {
			return "", err
		}
	}

	vacancies, err := hh.Search(ctx, &headhunter.SearchParams{Text: search, Limit: searchResultLimit})
	if err != nil {
		return "", fmt.Errorf("search vacancies: %w", err)
	}
	if vacancies.Len() == 0 {
		return "", errNoJobs
	}

	vacancyPrompt := promptui.Select{
		Label: "Choose a vacancy and press ENTER",
		Items: vacancies.Labels(),
		Size:  10,
	}
	idx, _, err := vacancyPrompt.Run()
	if err != nil {
		return "", err
	}
	return vacancies.Items[idx].ID, nil
}

func printSummary(out io.Writer, s *interview.Session) {
	fmt.Fprintf(out, "\nInterview %s: %d answers, average score %.2f/%d\n",
		s.Status, len(s.Turns), s.AverageScore(), interview.MaxScore)
	for i, turn := range s.Turns {
		fmt.Fprintf(out, "%2d. [%d] %s\n", i+1, turn.Score, turn.Question)
	}
}
