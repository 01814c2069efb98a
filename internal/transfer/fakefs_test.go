package transfer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"
)

// fakeFileInfo is a minimal os.FileInfo for the in-memory fake filesystem
// below; tests never need Mode/ModTime/Sys to carry real meaning.
type fakeFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (fi fakeFileInfo) Name() string       { return fi.name }
func (fi fakeFileInfo) Size() int64        { return fi.size }
func (fi fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (fi fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fi fakeFileInfo) IsDir() bool        { return fi.isDir }
func (fi fakeFileInfo) Sys() any           { return nil }

type fakeEntry struct {
	isDir bool
	data  []byte
}

// fakeFS is a hand-written in-memory stand-in for a remote SFTP tree. It
// satisfies both remoteFS and sftpLike, so the same instance drives the
// Resolver, the Enumerator, and the Transfer Primitive in tests without a
// real SSH/SFTP server.
type fakeFS struct {
	mu      sync.Mutex
	entries map[string]*fakeEntry
}

func newFakeFS() *fakeFS {
	return &fakeFS{entries: map[string]*fakeEntry{"/": {isDir: true}}}
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func (f *fakeFS) mkdir(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[cleanPath(p)] = &fakeEntry{isDir: true}
}

func (f *fakeFS) putFile(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[cleanPath(p)] = &fakeEntry{isDir: false, data: data}
}

func (f *fakeFS) fileContent(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[cleanPath(p)]
	if !ok || e.isDir {
		return nil, false
	}
	return e.data, true
}

func (f *fakeFS) Stat(p string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := cleanPath(p)
	e, ok := f.entries[cp]
	if !ok {
		return nil, os.ErrNotExist
	}
	return fakeFileInfo{name: path.Base(cp), size: int64(len(e.data)), isDir: e.isDir}, nil
}

func (f *fakeFS) ReadDir(p string) ([]os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := cleanPath(p)
	e, ok := f.entries[dir]
	if !ok || !e.isDir {
		return nil, os.ErrNotExist
	}
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var out []os.FileInfo
	for k, v := range f.entries {
		if k == dir || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, "/") || seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, fakeFileInfo{name: rest, size: int64(len(v.data)), isDir: v.isDir})
	}
	return out, nil
}

func (f *fakeFS) Mkdir(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := cleanPath(p)
	if _, ok := f.entries[cp]; ok {
		return fmt.Errorf("already exists")
	}
	f.entries[cp] = &fakeEntry{isDir: true}
	return nil
}

func (f *fakeFS) MkdirAll(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := ""
	for _, part := range strings.Split(strings.Trim(cleanPath(p), "/"), "/") {
		if part == "" {
			continue
		}
		cur += "/" + part
		if _, ok := f.entries[cur]; !ok {
			f.entries[cur] = &fakeEntry{isDir: true}
		}
	}
	return nil
}

type fakeFile struct {
	fs      *fakeFS
	path    string
	buf     *bytes.Buffer
	readBuf *bytes.Reader
}

func (f *fakeFS) Create(p string) (sftpFile, error) {
	f.mu.Lock()
	cp := cleanPath(p)
	f.entries[cp] = &fakeEntry{isDir: false}
	f.mu.Unlock()
	return &fakeFile{fs: f, path: cp, buf: &bytes.Buffer{}}, nil
}

func (f *fakeFS) Open(p string) (sftpFile, error) {
	f.mu.Lock()
	e, ok := f.entries[cleanPath(p)]
	f.mu.Unlock()
	if !ok {
		return nil, os.ErrNotExist
	}
	return &fakeFile{fs: f, path: cleanPath(p), readBuf: bytes.NewReader(e.data)}, nil
}

func (ff *fakeFile) Read(p []byte) (int, error) {
	if ff.readBuf == nil {
		return 0, io.EOF
	}
	return ff.readBuf.Read(p)
}

func (ff *fakeFile) Write(p []byte) (int, error) {
	return ff.buf.Write(p)
}

func (ff *fakeFile) Close() error {
	if ff.buf != nil {
		ff.fs.mu.Lock()
		ff.fs.entries[ff.path] = &fakeEntry{isDir: false, data: ff.buf.Bytes()}
		ff.fs.mu.Unlock()
	}
	return nil
}

func (f *fakeFS) Remove(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := cleanPath(p)
	if _, ok := f.entries[cp]; !ok {
		return os.ErrNotExist
	}
	delete(f.entries, cp)
	return nil
}

func (f *fakeFS) Rename(oldname, newname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	co, cn := cleanPath(oldname), cleanPath(newname)
	e, ok := f.entries[co]
	if !ok {
		return os.ErrNotExist
	}
	f.entries[cn] = e
	delete(f.entries, co)
	return nil
}

func (f *fakeFS) PosixRename(oldname, newname string) error { return f.Rename(oldname, newname) }
