package transfer

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	renameRetries     = 2
	renameRetrySleep  = 50 * time.Millisecond
	tempFileExtension = ".hp.part."
)

func tempName(final string) string {
	return final + tempFileExtension + strconv.Itoa(os.Getpid())
}

// UploadOne implements the upload half of the Transfer Primitive (§4.5):
// open local source, stream through a reusable buffer into a remote temp
// file, then atomically rename into place.
func UploadOne(remote sftpLike, task TransferTask, buf []byte, progress ProgressCallback) error {
	local, err := os.Open(task.SourcePath)
	if err != nil {
		return NewTransferError(MissingLocalSource, "local source not found: "+task.SourcePath, WithPath(task.SourcePath), WithErr(err))
	}
	defer local.Close()

	parent := filepath.ToSlash(filepath.Dir(task.DestinationPath))
	if err := remote.MkdirAll(parent); err != nil && !remoteExistsErr(err) {
		return NewTransferError(CreateRemoteDirFailed, "failed to create remote parent: "+parent, WithPath(parent), WithErr(err))
	}

	temp := tempName(task.DestinationPath)
	remoteFile, err := remote.Create(temp)
	if err != nil {
		return NewTransferError(SftpCreateFailed, "failed to create remote temp file: "+temp, WithPath(temp), WithErr(err))
	}

	if _, err := copyBuffer(remoteFile, local, buf, progress); err != nil {
		remoteFile.Close()
		_ = remote.Remove(temp)
		return NewTransferError(WorkerIo, "upload stream failed: "+task.SourcePath, WithPath(task.SourcePath), WithErr(err))
	}
	if err := remoteFile.Close(); err != nil {
		_ = remote.Remove(temp)
		return NewTransferError(WorkerIo, "closing remote temp file failed: "+temp, WithPath(temp), WithErr(err))
	}

	if err := renameRemoteWithRetry(remote, temp, task.DestinationPath); err != nil {
		_ = remote.Remove(temp)
		return NewTransferError(WorkerIo, "renaming remote temp file into place failed: "+task.DestinationPath, WithPath(task.DestinationPath), WithErr(err))
	}
	return nil
}

// DownloadOne implements the download half: open remote source, stream
// into a local temp file, fsync, close, then atomically rename, with the
// Windows delete-and-retry dance on collision.
func DownloadOne(remote sftpLike, task TransferTask, buf []byte, progress ProgressCallback) error {
	remoteFile, err := remote.Open(task.SourcePath)
	if err != nil {
		return NewTransferError(WorkerIo, "remote source not found: "+task.SourcePath, WithPath(task.SourcePath), WithErr(err))
	}
	defer remoteFile.Close()

	parent := filepath.Dir(task.DestinationPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return NewTransferError(CreateLocalDirFailed, "failed to create local parent: "+parent, WithPath(parent), WithErr(err))
	}

	temp := tempName(task.DestinationPath)
	localFile, err := os.Create(temp)
	if err != nil {
		return NewTransferError(WorkerIo, "failed to create local temp file: "+temp, WithPath(temp), WithErr(err))
	}

	if _, err := copyBuffer(localFile, remoteFile, buf, progress); err != nil {
		localFile.Close()
		_ = os.Remove(temp)
		return NewTransferError(WorkerIo, "download stream failed: "+task.SourcePath, WithPath(task.SourcePath), WithErr(err))
	}
	if err := localFile.Sync(); err != nil {
		localFile.Close()
		_ = os.Remove(temp)
		return NewTransferError(WorkerIo, "fsync of local temp file failed: "+temp, WithPath(temp), WithErr(err))
	}
	if err := localFile.Close(); err != nil {
		_ = os.Remove(temp)
		return NewTransferError(WorkerIo, "closing local temp file failed: "+temp, WithPath(temp), WithErr(err))
	}

	if err := renameLocalWithRetry(func() error { return os.Rename(temp, task.DestinationPath) }, func() error { return os.Remove(task.DestinationPath) }); err != nil {
		_ = os.Remove(temp)
		return NewTransferError(WorkerIo, "renaming local temp file into place failed: "+task.DestinationPath, WithPath(task.DestinationPath), WithErr(err))
	}
	return nil
}

// renameLocalWithRetry performs rename and, on Windows, retries past an
// AlreadyExists/PermissionDenied collision by removing the existing
// target first, up to renameRetries times with a short sleep between
// attempts (grounded in original_source's atomic_rename_with_retries).
func renameLocalWithRetry(rename func() error, removeExisting func() error) error {
	err := rename()
	if err == nil {
		return nil
	}
	if runtime.GOOS != "windows" || !isRenameCollision(err) {
		return err
	}
	for attempt := 0; attempt < renameRetries; attempt++ {
		time.Sleep(renameRetrySleep)
		_ = removeExisting()
		if err = rename(); err == nil {
			return nil
		}
		if !isRenameCollision(err) {
			return err
		}
	}
	return err
}

// renameRemoteWithRetry performs the remote-side atomic rename. It tries
// the posix-rename extension first, which most servers implement as an
// atomic overwrite; servers lacking it reject a plain SSH_FXP_RENAME onto
// an existing file, so on failure this falls back to remove-then-retry
// unconditionally, since overwrite rejection is a server property, not a
// property of the local client's OS.
func renameRemoteWithRetry(remote sftpLike, oldname, newname string) error {
	if err := remote.PosixRename(oldname, newname); err == nil {
		return nil
	}
	err := remote.Rename(oldname, newname)
	if err == nil {
		return nil
	}
	for attempt := 0; attempt < renameRetries; attempt++ {
		time.Sleep(renameRetrySleep)
		_ = remote.Remove(newname)
		if err = remote.Rename(oldname, newname); err == nil {
			return nil
		}
	}
	return err
}

func isRenameCollision(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "access is denied") || strings.Contains(msg, "permission denied")
}

func remoteExistsErr(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "exist")
}

// copyBuffer streams from src to dst using buf, invoking progress after
// every read so callers can throttle bar updates independently. buf is
// reused as-is across reads and files and is never zeroed, matching the
// one-allocation-per-worker invariant.
func copyBuffer(dst io.Writer, src io.Reader, buf []byte, progress ProgressCallback) (int64, error) {
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			total += int64(written)
			if progress != nil {
				progress(written)
			}
			if writeErr != nil {
				return total, writeErr
			}
			if written != n {
				return total, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return total, nil
			}
			return total, readErr
		}
	}
}
