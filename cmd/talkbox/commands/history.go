package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talkbox/talkbox/pkg/history"
	"github.com/talkbox/talkbox/pkg/kv"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the persisted conversation log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the persisted turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		msgs := log.Load(ctx)
		if len(msgs) == 0 {
			fmt.Println("No history.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tROLE\tCONTENT")
		for i, m := range msgs {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, m.Role, m.Content)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if IsVerbose() {
			metas, err := history.Sessions(ctx, store)
			if err != nil {
				return err
			}
			for _, m := range metas {
				fmt.Printf("session %q: %d entries, updated %s\n",
					m.Session, m.Entries, m.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := log.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the conversation database and the configured session's
// log. The caller closes the returned store.
func openHistory() (kv.Store, *history.Store, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, nil, err
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, nil, err
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dataDir})
	if err != nil {
		return nil, nil, fmt.Errorf("open conversation store: %w", err)
	}
	log := history.New(store, history.Options{
		Session: cfg.Session,
		Limit:   cfg.HistoryLimit,
	})
	return store, log, nil
}
