package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go_deproxy/app/deproxy_app"
	"go_deproxy/internal/domain/iface"
	"go_deproxy/internal/infra/repo"

	"github.com/spf13/cobra"
)

var showRecent int64

var showCmd = &cobra.Command{
	Use:   "show [request-id]",
	Short: "Print an archived message chain, or the most recent ones",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Archive.Enabled {
			return errors.New("archive is not enabled in the configuration")
		}
		if len(args) == 0 && showRecent <= 0 {
			return errors.New("pass a request id or --recent N")
		}

		archive, err := initializeArchive(cfg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = archive.Close(ctx)
		}()

		return show(cmd.Context(), archive, args)
	},
}

func init() {
	showCmd.Flags().Int64Var(&showRecent, "recent", 0, "Print the N most recently archived chains")
	rootCmd.AddCommand(showCmd)
}

func show(ctx context.Context, archive iface.ArchiveReader, args []string) error {
	if len(args) == 1 {
		rec, err := archive.FindChain(ctx, args[0])
		if errors.Is(err, repo.ErrChainNotArchived) {
			return fmt.Errorf("no archived chain with id %s", args[0])
		}
		if err != nil {
			return err
		}
		deproxy_app.PrintChainRecord(os.Stdout, rec, "")
		return nil
	}

	recs, err := archive.RecentChains(ctx, showRecent)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		deproxy_app.PrintChainRecord(os.Stdout, rec, "")
		fmt.Println()
	}
	return nil
}
