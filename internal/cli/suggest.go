// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/polite/internal/suggest"
)

// NewSuggestCmd creates the 'suggest' command, an interactive compose box.
func NewSuggestCmd(opts *globalOptions) *cobra.Command {
	var (
		idFile   string
		debounce time.Duration
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Interactive suggestion session",
		Long: `Each line you type replaces the draft message. After a short pause the
server's rephrased version is shown. Commands:
  /accept   replace the draft with the suggestion
  /send     send the draft as is
  /wait     wait for the pending suggestion
  /quit     leave the session`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if idFile == "" {
				path, err := defaultIDFile()
				if err != nil {
					return err
				}
				idFile = path
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			composer := newLineComposer(cmd.OutOrStdout())
			client := suggest.NewClient(composer,
				suggest.NewHTTPClient(opts.server, opts.timeout),
				suggest.NewFileIDStore(idFile),
				suggest.Options{Debounce: debounce, Logger: logger},
			)
			defer client.Close()

			return runSession(cmd.Context(), cmd.InOrStdin(), composer, client)
		},
	}

	cmd.Flags().StringVar(&idFile, "id-file", "", "Anonymous id store (default <user config dir>/polite/storage.json)")
	cmd.Flags().DurationVar(&debounce, "debounce", suggest.DefaultDebounce, "Quiet period before a suggestion is requested")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log failed requests")

	return cmd
}

func defaultIDFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "polite", "storage.json"), nil
}

// runSession feeds input lines to the client until /quit or end of input.
func runSession(ctx context.Context, in io.Reader, composer *lineComposer, client *suggest.Client) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case "/quit":
			return nil
		case "/accept":
			if client.Accept() {
				composer.printf("draft: %s\n", composer.Text())
			} else {
				composer.printf("no suggestion to accept\n")
			}
		case "/send":
			client.OnSubmit()
			composer.printf("sent: %s\n", composer.Text())
			composer.SetText("")
		case "/wait":
			if err := settle(ctx, client); err != nil {
				return err
			}
		default:
			composer.SetText(line)
			client.OnInput()
		}
	}
	return scanner.Err()
}

// settle waits until no debounce is pending and every request has finished.
func settle(ctx context.Context, client *suggest.Client) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for client.State() == suggest.Pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	client.Wait()
	return nil
}

// lineComposer is a terminal stand-in for the chat input box.
type lineComposer struct {
	mu   sync.Mutex
	out  io.Writer
	text string
}

func newLineComposer(out io.Writer) *lineComposer {
	return &lineComposer{out: out}
}

func (c *lineComposer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *lineComposer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

func (c *lineComposer) MoveCursorToEnd() {}

func (c *lineComposer) ShowSuggestion(text string) {
	c.printf("suggestion: %s\n", text)
}

func (c *lineComposer) HideSuggestion() {}

func (c *lineComposer) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}
