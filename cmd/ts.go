package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/NitronPlus/hostpilot/cmd/utils"
	"github.com/NitronPlus/hostpilot/internal/transfer"
	"github.com/NitronPlus/hostpilot/pkg/config"
	"github.com/NitronPlus/hostpilot/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type tsOptions struct {
	concurrency int
	bufMiB      int
	retries     int
	backoffMs   int
	quiet       bool
	json        bool
}

func newCmdTs() *cobra.Command {
	opts := &tsOptions{}

	cmd := &cobra.Command{
		Use:   "ts <sources...> <target>",
		Short: "Transfer files or directories to or from a remote host",
		Long: `ts moves files and directory trees between the local filesystem and a
remote host reachable over SSH/SFTP. Exactly one of the sources or the
target must be alias:path; the other side is local.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTs(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 8, "worker count (max 16)")
	cmd.Flags().IntVarP(&opts.bufMiB, "buf-mib", "f", 1, "per-worker buffer size in MiB (1-8)")
	cmd.Flags().IntVarP(&opts.retries, "retries", "r", 3, "per-file retry attempts (minimum 1)")
	cmd.Flags().IntVar(&opts.backoffMs, "retry-backoff-ms", transfer.DefaultBackoffMs, "linear backoff base in milliseconds")
	cmd.Flags().Bool("quiet", false, "suppress human progress and summary")
	cmd.Flags().Bool("json", false, "emit a single-line JSON summary at the end")

	return cmd
}

func runTs(cmd *cobra.Command, args []string, opts *tsOptions) error {
	opts.quiet, _ = cmd.Flags().GetBool("quiet")
	opts.json, _ = cmd.Flags().GetBool("json")

	sources := args[:len(args)-1]
	target := args[len(args)-1]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	registry, err := loadAliasRegistry()
	if err != nil {
		return err
	}

	runOpts := transfer.Options{
		Sources:      sources,
		Target:       target,
		Concurrency:  opts.concurrency,
		BufMiB:       opts.bufMiB,
		Retries:      opts.retries,
		BackoffMs:    opts.backoffMs,
		Quiet:        opts.quiet,
		JSON:         opts.json,
		IsTerminal:   term.IsTerminal(int(os.Stdout.Fd())),
		FailuresPath: utils.GetFailureLogPath(),
	}

	summary, err := transfer.Run(ctx, runOpts, registry)
	if err != nil {
		logger.Log.Error("transfer aborted", "error", err.Error())
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else if !opts.quiet {
		fmt.Println(summary.String())
	}

	if summary.Failures > 0 {
		os.Exit(1)
	}
	return nil
}

func loadAliasRegistry() (transfer.AliasRegistry, error) {
	store := config.NewDefaultStore(utils.GetConfigFilePath())
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading alias registry: %w", err)
	}
	provider := config.NewProvider(cfg)
	return transfer.NewProviderRegistry(provider), nil
}

func init() {
	rootCmd.AddCommand(newCmdTs())
}
