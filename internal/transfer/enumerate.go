package transfer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// destJoin joins a destination root with a path relative to a source
// root using the destination side's separator convention (forward slash
// for remote, OS-native for local).
func destJoin(remote bool, root, rel string) string {
	if rel == "." || rel == "" {
		return root
	}
	if remote {
		return strings.TrimRight(root, "/") + "/" + filepath.ToSlash(rel)
	}
	return filepath.Join(root, rel)
}

// Enumerate streams every TransferTask for plan into out and closes out
// when done (or on first enumeration error, which is also returned).
// It never materializes the full source listing before dispatching.
func Enumerate(ctx context.Context, plan *Plan, remote sftpLike, out chan<- TransferTask) error {
	defer close(out)
	if plan.Direction == Upload {
		return enumerateUpload(ctx, plan, remote, out)
	}
	return enumerateDownload(ctx, plan, remote, out)
}

func enumerateUpload(ctx context.Context, plan *Plan, remote sftpLike, out chan<- TransferTask) error {
	for _, source := range plan.Sources {
		pred, ok, err := extractGlobPredicate(source)
		if err != nil {
			return err
		}
		if ok {
			entries, err := os.ReadDir(pred.Dir)
			if err != nil {
				return NewTransferError(MissingLocalSource, "local source not found: "+source, WithPath(pred.Dir), WithErr(err))
			}
			matched := false
			for _, entry := range entries {
				if entry.IsDir() || !wildcardMatch(pred.Pattern, entry.Name()) {
					continue
				}
				matched = true
				fi, statErr := entry.Info()
				if statErr != nil {
					return NewTransferError(WorkerIo, "stat of local glob match failed: "+entry.Name(), WithPath(entry.Name()), WithErr(statErr))
				}
				dest := destForSingle(plan, true, entry.Name())
				fullPath := filepath.Join(pred.Dir, entry.Name())
				if err := send(ctx, out, TransferTask{SourcePath: fullPath, DestinationPath: dest, SizeHint: fi.Size()}); err != nil {
					return err
				}
			}
			if !matched {
				return NewTransferError(GlobNoMatches, "no local files matched: "+source, WithPattern(source))
			}
			continue
		}

		info, err := os.Stat(source)
		if err != nil {
			return NewTransferError(MissingLocalSource, "local source not found: "+source, WithPath(source), WithErr(err))
		}

		if !info.IsDir() {
			destName := filepath.Base(source)
			dest := destForSingle(plan, true, destName)
			if err := send(ctx, out, TransferTask{SourcePath: source, DestinationPath: dest, SizeHint: info.Size()}); err != nil {
				return err
			}
			continue
		}

		err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(source, path)
			if relErr != nil {
				return relErr
			}
			fi, statErr := d.Info()
			if statErr != nil {
				return statErr
			}
			dest := destJoin(true, plan.RemoteRoot, rel)
			return send(ctx, out, TransferTask{SourcePath: path, DestinationPath: dest, SizeHint: fi.Size()})
		})
		if err != nil {
			return NewTransferError(WorkerIo, "local enumeration failed under "+source, WithPath(source), WithErr(err))
		}
	}
	return nil
}

func enumerateDownload(ctx context.Context, plan *Plan, remote sftpLike, out chan<- TransferTask) error {
	source := plan.Sources[0]

	if plan.GlobPred != nil {
		entries, err := remote.ReadDir(plan.GlobPred.Dir)
		if err != nil {
			return NewTransferError(OperationFailed, "reading remote directory: "+plan.GlobPred.Dir, WithPath(plan.GlobPred.Dir), WithErr(err))
		}
		for _, entry := range entries {
			if entry.IsDir() || !wildcardMatch(plan.GlobPred.Pattern, entry.Name()) {
				continue
			}
			dest := destForSingle(plan, false, entry.Name())
			remotePath := strings.TrimRight(plan.GlobPred.Dir, "/") + "/" + entry.Name()
			if err := send(ctx, out, TransferTask{SourcePath: remotePath, DestinationPath: dest, SizeHint: entry.Size()}); err != nil {
				return err
			}
		}
		return nil
	}

	info, err := remote.Stat(source)
	if err != nil {
		return NewTransferError(OperationFailed, "remote source not found: "+source, WithPath(source), WithErr(err))
	}

	if !info.IsDir() {
		dest := destForSingle(plan, false, filepath.Base(source))
		return send(ctx, out, TransferTask{SourcePath: source, DestinationPath: dest, SizeHint: info.Size()})
	}

	return walkRemote(ctx, remote, source, plan.Target.Path, out)
}

// walkRemote drives a breadth-first traversal via SFTP ReadDir, queuing
// subdirectories to visit next rather than recursing, so the full tree is
// never held in memory at once.
func walkRemote(ctx context.Context, remote sftpLike, root, destRoot string, out chan<- TransferTask) error {
	type pending struct{ remoteDir, destDir string }
	queue := []pending{{root, destRoot}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entries, err := remote.ReadDir(cur.remoteDir)
		if err != nil {
			return NewTransferError(OperationFailed, "reading remote directory: "+cur.remoteDir, WithPath(cur.remoteDir), WithErr(err))
		}
		for _, entry := range entries {
			remotePath := strings.TrimRight(cur.remoteDir, "/") + "/" + entry.Name()
			destPath := filepath.Join(cur.destDir, entry.Name())
			if entry.IsDir() {
				queue = append(queue, pending{remotePath, destPath})
				continue
			}
			if err := send(ctx, out, TransferTask{SourcePath: remotePath, DestinationPath: destPath, SizeHint: entry.Size()}); err != nil {
				return err
			}
		}
	}
	return nil
}

// destForSingle computes the destination path for a single-file source,
// honoring the SpecificFile exception of §4.1.
func destForSingle(plan *Plan, remote bool, baseName string) string {
	if plan.TargetKind == SpecificFile {
		return plan.Target.Path
	}
	if remote {
		return destJoin(true, plan.RemoteRoot, baseName)
	}
	return filepath.Join(plan.Target.Path, baseName)
}

func send(ctx context.Context, out chan<- TransferTask, task TransferTask) error {
	select {
	case out <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
