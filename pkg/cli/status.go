package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/cli/config"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/urfave/cli/v3"
)

var stateColors = map[types.CaseState]*color.Color{
	types.CaseStateUnknown:  color.New(color.FgHiBlack),
	types.CaseStateSeen:     color.New(color.FgGreen),
	types.CaseStateUnread:   color.New(color.FgYellow, color.Bold),
	types.CaseStateNotified: color.New(color.FgRed, color.Bold),
}

func cmdStatus(version string) *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var lexiCfg config.LexiConnect
	var stateFilter string

	states := make([]string, 0, len(types.AllCaseStates()))
	for _, s := range types.AllCaseStates() {
		states = append(states, s.String())
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "state",
			Usage:       "Only print cases in this state (" + strings.Join(states, ", ") + ")",
			Destination: &stateFilter,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, lexiCfg.Flags()...)

	return &cli.Command{
		Name:  "status",
		Usage: "Poll once and print the unread state of every case",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var only types.CaseState
			if stateFilter != "" {
				parsed, err := types.ParseCaseState(stateFilter)
				if err != nil {
					return goerr.Wrap(err, "invalid --state", goerr.V(config.ValueKey, stateFilter))
				}
				only = parsed
			}

			// No toaster: a one-shot status never records a toast as shown
			env, err := setupUnread(ctx, version, &appCfg, &repoCfg, &lexiCfg)
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.uc.Unread.Poll(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to poll cases")
			}

			printStatus(c.Root().Writer, result, env.uc.Store(), only)
			return nil
		},
	}
}

// printStatus prints one row per case. A non-empty only hides rows in other
// states, failed cases included. The totals always cover every case.
func printStatus(w io.Writer, result *usecase.PollResult, store *usecase.UnreadStore, only types.CaseState) {
	bold := color.New(color.Bold)
	failed := color.New(color.FgRed)

	failedIDs := make(map[int64]bool, len(result.FailedCaseIDs))
	for _, id := range result.FailedCaseIDs {
		failedIDs[id] = true
	}

	_, _ = bold.Fprintf(w, "%-8s %-10s %-25s %s\n", "CASE", "STATE", "LAST SEEN", "TITLE")
	unread := 0
	for _, c := range result.Cases {
		if failedIDs[c.ID] {
			if only != "" {
				continue
			}
			_, _ = failed.Fprintf(w, "%-8d %-10s %-25s %s\n", c.ID, "ERROR", "-", c.DisplayTitle())
			continue
		}

		state := store.State(c.ID)
		if state.HasUnread() {
			unread++
		}
		if only != "" && state != only {
			continue
		}
		lastSeen := "-"
		if t, ok := store.LastSeen(c.ID); ok {
			lastSeen = model.FormatTimestamp(t)
		}

		stateText := stateColors[state].Sprintf("%-10s", state)
		_, _ = fmt.Fprintf(w, "%-8d %s %-25s %s\n", c.ID, stateText, lastSeen, c.DisplayTitle())
	}

	_, _ = fmt.Fprintf(w, "\n%d case(s), %d unread", len(result.Cases), unread)
	if len(result.FailedCaseIDs) > 0 {
		_, _ = failed.Fprintf(w, ", %d failed", len(result.FailedCaseIDs))
	}
	_, _ = fmt.Fprintln(w)
}
