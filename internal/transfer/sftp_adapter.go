package transfer

import (
	"os"

	"github.com/pkg/sftp"
)

// realSftp adapts *sftp.Client to the sftpLike interface; *sftp.Client's
// Create/Open/OpenFile methods return *sftp.File directly rather than an
// interface, so they can't satisfy sftpLike without this thin wrapper.
type realSftp struct {
	client *sftp.Client
}

func newRealSftp(client *sftp.Client) sftpLike {
	return &realSftp{client: client}
}

func (r *realSftp) Stat(path string) (os.FileInfo, error) { return r.client.Stat(path) }

func (r *realSftp) ReadDir(path string) ([]os.FileInfo, error) {
	return r.client.ReadDir(path)
}

func (r *realSftp) Mkdir(path string) error    { return r.client.Mkdir(path) }
func (r *realSftp) MkdirAll(path string) error { return r.client.MkdirAll(path) }

func (r *realSftp) Create(path string) (sftpFile, error) { return r.client.Create(path) }

func (r *realSftp) Open(path string) (sftpFile, error) { return r.client.Open(path) }

func (r *realSftp) Remove(path string) error { return r.client.Remove(path) }

func (r *realSftp) Rename(oldname, newname string) error {
	return r.client.Rename(oldname, newname)
}

func (r *realSftp) PosixRename(oldname, newname string) error {
	return r.client.PosixRename(oldname, newname)
}
