package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/catalog"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/spf13/cobra"
)

// catalogService is the subset of catalog operations the CLI drives
type catalogService interface {
	AddItem(ctx context.Context, req catalog.AddRequest) (repository.ItemView, error)
	GetItem(ctx context.Context, id string) (repository.ItemView, error)
	DeleteItem(ctx context.Context, id string) (repository.ItemView, error)
	ListByURL(ctx context.Context, url string, limit int) ([]repository.ItemView, error)
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
	ListKeys(ctx context.Context) ([]string, error)
	InitIndex(ctx context.Context) (repository.IndexStatus, error)
}

type openFunc func(ctx context.Context) (catalogService, error)

func newRootCmd(open openFunc, out io.Writer) *cobra.Command {
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:          "catalog",
		Short:        "Operate the GitHub repository catalog",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Deadline for the whole command")

	// run opens the catalog and invokes fn under the command deadline
	run := func(cmd *cobra.Command, fn func(ctx context.Context, svc catalogService) (interface{}, error)) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		svc, err := open(ctx)
		if err != nil {
			return err
		}
		result, err := fn(ctx, svc)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}

	var category string
	addCmd := &cobra.Command{
		Use:   "add <github-repository-url> <url>",
		Short: "Fetch a GitHub repository, embed it and store it as a catalog item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.AddItem(ctx, catalog.AddRequest{
					GitHubRepositoryURL: args[0],
					URL:                 args[1],
					Category:            category,
				})
			})
		},
	}
	addCmd.Flags().StringVar(&category, "category", "", "Item category (defaults to the configured category)")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.GetItem(ctx, args[0])
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.DeleteItem(ctx, args[0])
			})
		},
	}

	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list <url>",
		Short: "List items registered for a URL, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.ListByURL(ctx, args[0], listLimit)
			})
		},
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of items (0 uses the configured default)")

	var (
		searchLimit  int
		searchType   string
		positiveOnly bool
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank catalog items by similarity to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := search.ParseType(searchType)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.Search(ctx, search.Request{
					Query:        args[0],
					Limit:        searchLimit,
					Type:         t,
					PositiveOnly: positiveOnly,
				})
			})
		},
	}
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (0 uses the configured default)")
	searchCmd.Flags().StringVar(&searchType, "type", string(search.TypeCombined), "Embedding to compare: description, repository or combined")
	searchCmd.Flags().BoolVar(&positiveOnly, "positive-only", false, "Drop results scoring zero or below")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List every catalog item key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.ListKeys(ctx)
			})
		},
	}

	initIndexCmd := &cobra.Command{
		Use:   "init-index",
		Short: "Create the auxiliary search index sets if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc catalogService) (interface{}, error) {
				return svc.InitIndex(ctx)
			})
		},
	}

	rootCmd.AddCommand(addCmd, getCmd, deleteCmd, listCmd, searchCmd, keysCmd, initIndexCmd)
	return rootCmd
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
