package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadOne_WritesThroughTempNameThenRenames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := newFakeFS()
	fs.mkdir("/remote")

	var reported int
	task := TransferTask{SourcePath: src, DestinationPath: "/remote/dest.txt", SizeHint: 7}
	buf := make([]byte, 4096)

	if err := UploadOne(fs, task, buf, func(n int) { reported += n }); err != nil {
		t.Fatalf("UploadOne failed: %v", err)
	}

	data, ok := fs.fileContent("/remote/dest.txt")
	if !ok {
		t.Fatal("destination file was not written")
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected remote content: %q", string(data))
	}
	if reported != len("payload") {
		t.Fatalf("progress callback reported %d bytes, want %d", reported, len("payload"))
	}

	fs.mu.Lock()
	for k := range fs.entries {
		if strings.Contains(k, tempFileExtension) {
			t.Fatalf("leftover temp entry: %s", k)
		}
	}
	fs.mu.Unlock()
}

func TestUploadOne_MissingLocalSource(t *testing.T) {
	fs := newFakeFS()
	task := TransferTask{SourcePath: "/no/such/file", DestinationPath: "/remote/dest.txt"}

	err := UploadOne(fs, task, make([]byte, 64), nil)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	te, ok := err.(*TransferError)
	if !ok {
		t.Fatalf("expected *TransferError, got %T", err)
	}
	if te.Variant != MissingLocalSource {
		t.Fatalf("expected MissingLocalSource, got %v", te.Variant)
	}
}

func TestDownloadOne_WritesLocalFileAndCleansUpTemp(t *testing.T) {
	fs := newFakeFS()
	fs.putFile("/remote/source.txt", []byte("remote-bytes"))

	dir := t.TempDir()
	dest := filepath.Join(dir, "local.txt")
	task := TransferTask{SourcePath: "/remote/source.txt", DestinationPath: dest}

	if err := DownloadOne(fs, task, make([]byte, 4096), nil); err != nil {
		t.Fatalf("DownloadOne failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != "remote-bytes" {
		t.Fatalf("unexpected local content: %q", string(data))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), tempFileExtension) {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestIsRenameCollision(t *testing.T) {
	cases := map[string]bool{
		"file already exists":         true,
		"Access is denied.":           true,
		"permission denied":           true,
		"no such file or directory":   false,
	}
	for msg, want := range cases {
		if got := isRenameCollision(errString(msg)); got != want {
			t.Errorf("isRenameCollision(%q) = %v, want %v", msg, got, want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
