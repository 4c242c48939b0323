package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/kudige/codex/internal"
	"github.com/spf13/cobra"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// runInteractive is the root command's RunE: resolve or create a session
// once, hold the lock for the full interactive lifetime, save the snapshot
// on every turn boundary so a crash loses at most the in-flight turn.
func runInteractive(cmd *cobra.Command, args []string) (err error) {
	root, err := resolveStoreRoot()
	if err != nil {
		return err
	}

	policy := internal.ResumeAuto
	if newSession {
		policy = internal.ResumeNever
	}

	active, err := internal.Open(internal.OpenOptions{
		StoreRoot:   root,
		ProjectPath: projectPath,
		Policy:      policy,
		Settings:    loadSettings(root),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := active.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	out := cmd.OutOrStdout()
	if active.Resumed() {
		fmt.Fprintln(out, bannerStyle.Render(fmt.Sprintf("Resumed session %s", active.Session.ID)))
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d transcript entries so far", active.TranscriptEntryCount())))
	} else {
		fmt.Fprintln(out, bannerStyle.Render(fmt.Sprintf("New session %s", active.Session.ID)))
	}
	fmt.Fprintln(out, mutedStyle.Render(`Type "exit" or press Ctrl-D to end the session.`))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	responder := localResponder{}

	if len(args) == 1 && args[0] != "" {
		if err := runInteractiveTurn(ctx, out, active, responder, args[0]); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := runInteractiveTurn(ctx, out, active, responder, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Session %s saved.", active.Session.ID)))
	return nil
}

func runInteractiveTurn(ctx context.Context, out io.Writer, active *internal.ActiveSession, responder internal.Responder, prompt string) error {
	reply, err := active.RunTurn(ctx, responder, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, replyStyle.Render(reply))
	return nil
}
