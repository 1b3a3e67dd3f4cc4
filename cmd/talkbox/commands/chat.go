package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talkbox/talkbox/pkg/chat"
	"github.com/talkbox/talkbox/pkg/engine"
	"github.com/talkbox/talkbox/pkg/history"
	"github.com/talkbox/talkbox/pkg/kv"
	"github.com/talkbox/talkbox/pkg/render"
	"github.com/talkbox/talkbox/pkg/speak"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation in the terminal.

Type a message and press enter. Replies are revealed incrementally.
Commands inside the session:

  /clear   clear the conversation history
  /mute    toggle speech output
  /quit    leave the session`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dataDir})
	if err != nil {
		return fmt.Errorf("open conversation store: %w", err)
	}
	defer store.Close()

	surface := newTermSurface(os.Stdout)
	log := history.New(store, history.Options{
		Session: cfg.Session,
		Limit:   cfg.HistoryLimit,
	})
	exchanger := chat.NewClient(cfg.Endpoint,
		chat.WithBearerToken(cfg.Token),
		chat.WithHistoryLimit(log.Limit()),
	)
	output := speak.New(speechSynthesizer())
	output.SetMuted(cfg.Muted)

	eng := engine.New(log, exchanger, render.New(surface), surface, output, nil, engine.Config{})

	ctx := cmd.Context()
	for i, msg := range eng.History(ctx) {
		who := "assistant"
		if msg.Role == chat.RoleUser {
			who = "user"
		}
		id := fmt.Sprintf("replay-%d", i)
		surface.AppendBubble(id, who)
		surface.SetText(id, msg.Content)
	}
	eng.Greet(ctx)
	surface.System("Type a message, /clear, /mute or /quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			eng.Wait()
			output.Wait()
			return nil
		case "/clear":
			eng.Dispatch(ctx, engine.GestureClearHistory, "")
		case "/mute":
			if eng.ToggleMute() {
				surface.System("Speech muted.")
			} else {
				surface.System("Speech on.")
			}
		default:
			eng.Dispatch(ctx, engine.GestureSubmit, line)
			// One turn at a time in the terminal; wait for the reveal.
			eng.Wait()
		}
	}
	eng.Wait()
	output.Wait()
	return scanner.Err()
}

// speechSynthesizer returns the platform speech backend, or nil when none
// is available. A nil backend turns speech output into a no-op.
func speechSynthesizer() speak.Synthesizer {
	if path, err := exec.LookPath("say"); err == nil {
		return speak.SynthesizeFunc(func(ctx context.Context, text, lang string) error {
			var args []string
			if lang == speak.LangHindi {
				args = append(args, "-v", "Lekha")
			}
			args = append(args, text)
			return exec.CommandContext(ctx, path, args...).Run()
		})
	}
	if path, err := exec.LookPath("espeak"); err == nil {
		return speak.SynthesizeFunc(func(ctx context.Context, text, lang string) error {
			voice := "en"
			if lang == speak.LangHindi {
				voice = "hi"
			}
			return exec.CommandContext(ctx, path, "-v", voice, text).Run()
		})
	}
	return nil
}
