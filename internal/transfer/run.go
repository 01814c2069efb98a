package transfer

import (
	"context"
	"fmt"

	"github.com/NitronPlus/hostpilot/pkg/logger"
	pkgsftp "github.com/NitronPlus/hostpilot/pkg/sftp"
	hostssh "github.com/NitronPlus/hostpilot/pkg/ssh"
	"golang.org/x/sync/errgroup"
)

// Options is the CLI-facing configuration for one ts invocation (§6).
type Options struct {
	Sources      []string
	Target       string
	Concurrency  int
	BufMiB       int
	Retries      int
	BackoffMs    int
	Quiet        bool
	JSON         bool
	IsTerminal   bool
	FailuresPath string
}

func clampWorkers(n int) int {
	switch {
	case n <= 0:
		return 1
	case n > 16:
		return 16
	default:
		return n
	}
}

func clampBufMiB(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 8:
		return 8
	default:
		return n
	}
}

// preflightConn is the single connection opened up front to resolve the
// Plan (stat/mkdir/readdir on the remote target or glob directory, and
// remote $HOME lookup). It stays open for the whole run because the
// Enumerator reads the remote tree through it, and is closed when Run
// returns; workers never use it, each owning its own exclusive session.
type preflightConn struct {
	client *hostssh.Client
	sftp   *pkgsftp.Client
	home   string
}

func dialPreflight(ctx context.Context, alias AliasEntry) (*preflightConn, error) {
	client, err := BuildSession(ctx, alias)
	if err != nil {
		return nil, err
	}
	sftpCl, err := pkgsftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, NewTransferError(SftpCreateFailed, "failed to open preflight sftp channel", WithAlias(alias.Alias), WithErr(err))
	}
	home, err := ExpandRemoteHome(ctx, client)
	if err != nil {
		_ = sftpCl.Close()
		_ = client.Close()
		return nil, err
	}
	return &preflightConn{client: client, sftp: sftpCl, home: home}, nil
}

func (p *preflightConn) close() {
	if p == nil {
		return
	}
	_ = p.sftp.Close()
	_ = p.client.Close()
}

// Run implements the orchestrator (§2 control flow, §4 full pipeline):
// resolve the Plan, enumerate tasks into a bounded queue, drain it with a
// worker pool under the retry policy, and produce the final Summary.
func Run(ctx context.Context, opts Options, registry AliasRegistry) (Summary, error) {
	workers := clampWorkers(opts.Concurrency)
	bufSize := clampBufMiB(opts.BufMiB) << 20
	policy := NewRetryPolicy(opts.Retries, opts.BackoffMs)

	// Reject a non-final-segment wildcard before the preflight dial below.
	for _, s := range opts.Sources {
		if isDisallowedGlobUsage(s) {
			return Summary{}, NewTransferError(UnsupportedGlobUsage, "wildcard only allowed in the final path segment: "+s, WithPattern(s))
		}
	}

	var conns = map[string]*preflightConn{}
	defer func() {
		for _, c := range conns {
			c.close()
		}
	}()

	connectFor := func(alias string) (*preflightConn, error) {
		if c, ok := conns[alias]; ok {
			return c, nil
		}
		entry, ok := registry.Lookup(alias)
		if !ok {
			return nil, NewTransferError(AliasNotFound, "alias not found: "+alias, WithAlias(alias))
		}
		c, err := dialPreflight(ctx, entry)
		if err != nil {
			return nil, err
		}
		conns[alias] = c
		return c, nil
	}

	sources := make([]string, len(opts.Sources))
	copy(sources, opts.Sources)
	target := opts.Target
	for i, s := range sources {
		if isRemoteSpec(s) {
			alias, path := splitAliasPath(s)
			c, err := connectFor(alias)
			if err != nil {
				return Summary{}, err
			}
			sources[i] = alias + ":" + ExpandTilde(path, c.home)
		}
	}
	if isRemoteSpec(target) {
		alias, path := splitAliasPath(target)
		c, err := connectFor(alias)
		if err != nil {
			return Summary{}, err
		}
		target = alias + ":" + ExpandTilde(path, c.home)
	}

	remoteFSFor := func(alias string) (remoteFS, error) {
		c, err := connectFor(alias)
		if err != nil {
			return nil, err
		}
		return newRealSftp(c.sftp.SFTPClient()), nil
	}

	plan, err := ResolvePlan(sources, target, registry, remoteFSFor)
	if err != nil {
		return Summary{}, err
	}

	sink := NewFailureSink(opts.FailuresPath)
	defer sink.Close()

	progress := NewProgress(-1, opts.Quiet, opts.IsTerminal)

	queueCap := workers * 4
	queue := make(chan TransferTask, queueCap)

	remoteConn, err := connectFor(plan.RemoteAlias.Alias)
	if err != nil {
		return Summary{}, err
	}
	enumFS := newRealSftp(remoteConn.sftp.SFTPClient())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return Enumerate(gctx, plan, enumFS, queue)
	})

	RunWorkerPool(ctx, workers, bufSize, plan, queue, policy, progress, sink)

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := progress.BuildSummary(sink.Path())
	logger.Log.Debug("run complete", "summary", fmt.Sprintf("%+v", summary))
	return summary, nil
}
