package transfer

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/NitronPlus/hostpilot/pkg/logger"
	pkgsftp "github.com/NitronPlus/hostpilot/pkg/sftp"
	hostssh "github.com/NitronPlus/hostpilot/pkg/ssh"
	"github.com/schollz/progressbar/v3"
)

// WorkerState holds one worker's exclusively-owned connection state. A
// worker may only execute a task when both client and sftp are present;
// a failed attempt clears both, forcing a rebuild before the next task.
type WorkerState struct {
	id        int
	alias     AliasEntry
	client    *hostssh.Client
	sftp      sftpLike
	sftpCl    *pkgsftp.Client
	buf       []byte
	builtOnce bool
}

func newWorkerState(id int, alias AliasEntry, bufSize int) *WorkerState {
	return &WorkerState{id: id, alias: alias, buf: make([]byte, bufSize)}
}

func (w *WorkerState) connected() bool {
	return w.client != nil && w.sftp != nil
}

func (w *WorkerState) reset() {
	if w.sftpCl != nil {
		_ = w.sftpCl.Close()
	}
	if w.client != nil {
		_ = w.client.Close()
	}
	w.client = nil
	w.sftp = nil
	w.sftpCl = nil
}

// rebuild (re)establishes the worker's session and SFTP channel. Metrics
// only count rebuilds that follow a prior successful connection — the
// worker's very first build for a task is not a rebuild.
func (w *WorkerState) rebuild(ctx context.Context, metrics *Metrics) *TransferError {
	isRebuild := w.builtOnce
	w.reset()
	client, err := BuildSession(ctx, w.alias)
	if err != nil {
		if te, ok := err.(*TransferError); ok {
			return te
		}
		return NewTransferError(WorkerBuildSessionFailed, "failed to build worker session", WithAlias(w.alias.Alias), WithErr(err))
	}
	if isRebuild {
		metrics.SessionRebuilt()
	}

	sftpCl, err := pkgsftp.NewClient(client, pkgsftp.WithBufferSize(len(w.buf)))
	if err != nil {
		_ = client.Close()
		return NewTransferError(SftpCreateFailed, "failed to open sftp channel", WithAlias(w.alias.Alias), WithErr(err))
	}
	if isRebuild {
		metrics.SftpRebuilt()
	}

	w.client = client
	w.sftpCl = sftpCl
	w.sftp = newRealSftp(sftpCl.SFTPClient())
	w.builtOnce = true
	return nil
}

// RunWorkerPool starts N workers pulling from queue until it is closed and
// drained, each running tasks through policy and reporting into progress
// and sink. It returns once every worker has exited.
func RunWorkerPool(ctx context.Context, n, bufSize int, plan *Plan, queue <-chan TransferTask, policy RetryPolicy, progress *Progress, sink *FailureSink) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			runWorker(ctx, i, bufSize, plan, queue, policy, progress, sink)
		})
	}
	wg.Wait()
}

func runWorker(ctx context.Context, id, bufSize int, plan *Plan, queue <-chan TransferTask, policy RetryPolicy, progress *Progress, sink *FailureSink) {
	w := newWorkerState(id, plan.RemoteAlias, bufSize)

	for task := range queue {
		gotSlot := progress.TryAcquireFileSlot()
		var fileBar *progressbar.ProgressBar
		if gotSlot {
			fileBar = progress.NewFileBar(filepath.Base(task.SourcePath), task.SizeHint)
		}

		result := policy.Run(func(attempt int) *TransferError {
			if !w.connected() {
				if err := w.rebuild(ctx, progress.Metrics); err != nil {
					return err
				}
			}

			throttler := NewThrottler()
			cb := func(n int) {
				throttler.Add(n, func(total int64) { progress.AddBytes(total) })
				if fileBar != nil {
					_ = fileBar.Add(n)
				}
			}

			var err error
			if plan.Direction == Upload {
				err = UploadOne(w.sftp, task, w.buf, cb)
			} else {
				err = DownloadOne(w.sftp, task, w.buf, cb)
			}
			throttler.Flush(func(total int64) { progress.AddBytes(total) })

			if err != nil {
				w.reset()
				if te, ok := err.(*TransferError); ok {
					return te
				}
				return NewTransferError(WorkerIo, "transfer failed: "+task.SourcePath, WithPath(task.SourcePath), WithErr(err))
			}
			return nil
		})

		if fileBar != nil {
			_ = fileBar.Finish()
		}
		if gotSlot {
			progress.ReleaseFileSlot()
		}

		if result != nil {
			progress.Metrics.FileFailed()
			logger.Log.Warn("transfer failed", "file", filepath.Base(task.SourcePath), "variant", string(result.Variant), "message", result.Message)
			sink.Write(result)
			continue
		}
		progress.Metrics.FileCompleted()
	}

	w.reset()
}
