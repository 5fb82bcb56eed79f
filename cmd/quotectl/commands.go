package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/bootstrap"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// quoteBook is the subset of app.QuoteBook the commands use.
type quoteBook interface {
	List() []domain.Quote
	Categories() []string
	SelectedCategory(ctx context.Context) (string, error)
	Random(ctx context.Context, sessionID string) (domain.Quote, error)
	Add(ctx context.Context, text, category string) (domain.Quote, error)
	Filter(ctx context.Context, category string) (app.FilterResult, error)
	Import(ctx context.Context, data []byte) (app.ImportResult, error)
	Export(ctx context.Context, w io.Writer) error
	Sync(ctx context.Context) (app.SyncResult, error)
}

// bookOpener opens the collection. The returned close func flushes
// background work and releases storage.
type bookOpener func(ctx context.Context, opts options) (quoteBook, func() error, error)

type options struct {
	profile  string
	logLevel string
}

func openConfiguredBook(ctx context.Context, opts options) (quoteBook, func() error, error) {
	cfg, err := bootstrap.LoadConfig(opts.profile)
	if err != nil {
		return nil, nil, err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	// Logs go to stderr so command output stays machine readable.
	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  "pretty",
		Service: "quotectl",
		Version: cfg.App.Version,
	}, os.Stderr)

	book, err := bootstrap.OpenBook(ctx, cfg, logger, bootstrap.BookConfig{})
	if err != nil {
		return nil, nil, err
	}

	return book, book.Close, nil
}

func newRootCmd(open bookOpener) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Manage the quote collection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.profile, "profile", os.Getenv("APP_ENVIRONMENT"), "configuration profile")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	// withBook opens the collection around fn and closes it afterwards.
	withBook := func(fn func(cmd *cobra.Command, args []string, book quoteBook) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			book, closeBook, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := closeBook(); closeErr != nil && err == nil {
					err = fmt.Errorf("closing storage: %w", closeErr)
				}
			}()

			return fn(cmd, args, book)
		}
	}

	root.AddCommand(
		newListCmd(withBook),
		newCategoriesCmd(withBook),
		newRandomCmd(withBook),
		newAddCmd(withBook),
		newImportCmd(withBook),
		newExportCmd(withBook),
		newSyncCmd(withBook),
	)

	return root
}

type runWithBook func(fn func(cmd *cobra.Command, args []string, book quoteBook) error) func(*cobra.Command, []string) error

func newListCmd(withBook runWithBook) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes, optionally filtered by category",
		Args:  cobra.NoArgs,
		RunE: withBook(func(cmd *cobra.Command, _ []string, book quoteBook) error {
			quotes := book.List()

			if cmd.Flags().Changed("category") {
				result, err := book.Filter(cmd.Context(), category)
				if err != nil {
					return err
				}
				quotes = result.Quotes
			}

			for _, q := range quotes {
				printQuote(cmd.OutOrStdout(), q)
			}

			return nil
		}),
	}

	cmd.Flags().StringVar(&category, "category", domain.CategoryAll, "only show quotes in this category and remember it")

	return cmd
}

func newCategoriesCmd(withBook runWithBook) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories, marking the selected one",
		Args:  cobra.NoArgs,
		RunE: withBook(func(cmd *cobra.Command, _ []string, book quoteBook) error {
			selected, err := book.SelectedCategory(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range append([]string{domain.CategoryAll}, book.Categories()...) {
				marker := " "
				if c == selected {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, c)
			}

			return nil
		}),
	}
}

func newRandomCmd(withBook runWithBook) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Show a random quote",
		Args:  cobra.NoArgs,
		RunE: withBook(func(cmd *cobra.Command, _ []string, book quoteBook) error {
			q, err := book.Random(cmd.Context(), "")
			if err != nil {
				return err
			}

			printQuote(cmd.OutOrStdout(), q)

			return nil
		}),
	}
}

func newAddCmd(withBook runWithBook) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote and post it to the remote source",
		Args:  cobra.MinimumNArgs(1),
		RunE: withBook(func(cmd *cobra.Command, args []string, book quoteBook) error {
			q, err := book.Add(cmd.Context(), strings.Join(args, " "), category)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "added ")
			printQuote(cmd.OutOrStdout(), q)

			return nil
		}),
	}

	cmd.Flags().StringVar(&category, "category", "", "category of the quote")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newImportCmd(withBook runWithBook) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import quotes from a JSON file (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withBook(func(cmd *cobra.Command, args []string, book quoteBook) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			result, err := book.Import(cmd.Context(), data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d of %d quotes\n", len(result.Added), result.Total)
			for _, r := range result.Rejected {
				fmt.Fprintf(out, "  rejected #%d: %s\n", r.Index, r.Reason)
			}

			return nil
		}),
	}
}

func newExportCmd(withBook runWithBook) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export quotes as JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: withBook(func(cmd *cobra.Command, args []string, book quoteBook) error {
			if len(args) == 0 || args[0] == "-" {
				if err := book.Export(cmd.Context(), cmd.OutOrStdout()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}

			if err := book.Export(cmd.Context(), f); err != nil {
				_ = f.Close()
				return err
			}

			return f.Close()
		}),
	}
}

func newSyncCmd(withBook runWithBook) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge the remote quote list into the local collection",
		Args:  cobra.NoArgs,
		RunE: withBook(func(cmd *cobra.Command, _ []string, book quoteBook) error {
			result, err := book.Sync(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d, %d -> %d quotes, changed: %t\n",
				result.Fetched, result.Before, result.After, result.Changed)

			return nil
		}),
	}
}

func printQuote(w io.Writer, q domain.Quote) {
	fmt.Fprintf(w, "%q [%s]\n", q.Text, q.Category)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}

	return data, nil
}
