package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/domain"
)

var runOpts struct {
	topic      string
	difficulty string
	duration   time.Duration
	name       string
	seed       int64
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a discussion",
	Long: `Start a discussion on --topic and take turns by typing.

Commands inside the discussion:
  /begin     start the clock without speaking
  /pause     take a pause (each pause costs points)
  /silence   stay silent and let the panel continue
  /conclude  deliver your closing statement
  /end       end the discussion and show the evaluation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(runOpts.topic) == "" {
			return errors.New("--topic is required")
		}
		rt, err := newApp(cmd.Context(), runOpts.seed)
		if err != nil {
			return err
		}
		defer func() { _ = rt.repo.Close() }()

		ev, err := runSession(cmd.Context(), rt.svc, discussion.StartRequest{
			UserID:     localUserID,
			UserName:   runOpts.name,
			Topic:      runOpts.topic,
			Difficulty: runOpts.difficulty,
			Duration:   runOpts.duration,
		}, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), runOpts.topic, ev)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.topic, "topic", "t", "", "Discussion topic")
	runCmd.Flags().StringVarP(&runOpts.difficulty, "difficulty", "d", "medium", "easy, medium or hard")
	runCmd.Flags().DurationVar(&runOpts.duration, "duration", 0, "Discussion length (default from GD_DEFAULT_DURATION)")
	runCmd.Flags().StringVarP(&runOpts.name, "name", "n", "", "Name the participants call you")
	runCmd.Flags().Int64Var(&runOpts.seed, "seed", 0, "Seed for speaker selection (0 = random)")
}

// command maps a typed line onto an action and its text.
func command(line string) (domain.Action, string, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "/begin":
		return domain.ActionBegin, "", true
	case "/pause":
		return domain.ActionPause, "", true
	case "/silence":
		return domain.ActionSilenceBreak, "", true
	case "/end", "/quit":
		return "", "", false
	}
	if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "/conclude"); ok {
		return domain.ActionConclude, strings.TrimSpace(rest), true
	}
	return domain.ActionSpeak, line, true
}

// runSession drives one discussion from in until the user ends it, the
// discussion concludes, or in is exhausted. It returns the final evaluation.
func runSession(ctx context.Context, svc *discussion.Service, req discussion.StartRequest, in io.Reader, out io.Writer) (*domain.Evaluation, error) {
	start, err := svc.StartSession(ctx, req)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(start.Participants))
	for _, p := range start.Participants {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Personality))
	}
	fmt.Fprintf(out, "Moderator: %s\n", start.OpeningPrompt)
	fmt.Fprintf(out, "Panel: %s. You have %s.\n\n", strings.Join(names, ", "), time.Duration(start.DurationSeconds)*time.Second)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		action, text, ok := command(line)
		if !ok {
			break
		}

		turn, err := svc.HandleMessage(ctx, start.SessionID, action, text)
		if err != nil {
			if errors.Is(err, discussion.ErrInvalidInput) {
				fmt.Fprintf(out, "  (%v)\n", err)
				continue
			}
			if errors.Is(err, discussion.ErrSessionEnded) {
				break
			}
			return nil, err
		}
		printTurn(out, turn)
		if turn.ShouldEndSession {
			fmt.Fprintln(out, "Moderator: Thank you all, that concludes the discussion.")
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	fmt.Fprintln(out, "\nEvaluating your performance...")
	return svc.EndSession(ctx, start.SessionID)
}

func printTurn(out io.Writer, turn *discussion.TurnResult) {
	switch turn.Status {
	case discussion.StatusPaused:
		fmt.Fprintf(out, "  (paused, %d so far)\n", turn.PauseCount)
		return
	case discussion.StatusReady:
		fmt.Fprintln(out, "  (clock started)")
		return
	}
	for _, u := range turn.BotUtterances {
		fmt.Fprintf(out, "%s: %s\n", u.Speaker, u.Text)
	}
	status := fmt.Sprintf("%ds left", turn.TimeRemaining)
	if turn.NextSpeaker == domain.HumanID {
		status += ", your turn"
	}
	if turn.CanConclude {
		status += ", time to conclude (/conclude)"
	}
	fmt.Fprintf(out, "  [%s]\n", status)
}
