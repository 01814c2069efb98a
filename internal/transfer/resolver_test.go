package transfer

import (
	"os"
	"path/filepath"
	"testing"
)

func testRegistry() AliasRegistry {
	return mapRegistry{
		"srv": AliasEntry{Alias: "srv", User: "deploy", Host: "example.com", Port: 22, AuthType: "key"},
	}
}

func TestResolvePlan_UploadSingleFileToExistingRemoteDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := newFakeFS()
	fs.mkdir("/remote/dir")

	plan, err := ResolvePlan([]string{src}, "srv:/remote/dir/", testRegistry(), func(string) (remoteFS, error) { return fs, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Direction != Upload {
		t.Fatalf("expected Upload, got %v", plan.Direction)
	}
	if plan.TargetKind != ExistingDirectory {
		t.Fatalf("expected ExistingDirectory, got %v", plan.TargetKind)
	}
	if plan.RemoteRoot != "/remote/dir" {
		t.Fatalf("unexpected remote root: %q", plan.RemoteRoot)
	}
}

func TestResolvePlan_DownloadSingleFile(t *testing.T) {
	fs := newFakeFS()
	fs.putFile("/remote/file.txt", []byte("data"))

	dir := t.TempDir()

	plan, err := ResolvePlan([]string{"srv:/remote/file.txt"}, dir+"/", testRegistry(), func(string) (remoteFS, error) { return fs, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Direction != Download {
		t.Fatalf("expected Download, got %v", plan.Direction)
	}
	if plan.TargetKind != ExistingDirectory {
		t.Fatalf("expected ExistingDirectory, got %v", plan.TargetKind)
	}
}

func TestResolvePlan_UnsupportedGlobMiddleSegment(t *testing.T) {
	fs := newFakeFS()
	fs.mkdir("/remote")

	dir := t.TempDir()

	_, err := ResolvePlan([]string{"srv:/remote/*/file.txt"}, dir+"/", testRegistry(), func(string) (remoteFS, error) { return fs, nil })
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	te, ok := err.(*TransferError)
	if !ok {
		t.Fatalf("expected *TransferError, got %T", err)
	}
	if te.Variant != UnsupportedGlobUsage {
		t.Fatalf("expected UnsupportedGlobUsage, got %v", te.Variant)
	}
}

func TestResolvePlan_UploadBothSidesRemoteRejected(t *testing.T) {
	fs := newFakeFS()
	fs.mkdir("/remote")

	_, err := ResolvePlan([]string{"srv:/a"}, "srv:/remote/", testRegistry(), func(string) (remoteFS, error) { return fs, nil })
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	te, ok := err.(*TransferError)
	if !ok {
		t.Fatalf("expected *TransferError, got %T", err)
	}
	if te.Variant != InvalidDirection {
		t.Fatalf("expected InvalidDirection, got %v", te.Variant)
	}
}

func TestResolvePlan_DownloadMultipleRemoteSourcesRejected(t *testing.T) {
	dir := t.TempDir()
	fs := newFakeFS()

	_, err := ResolvePlan([]string{"srv:/a", "srv:/b"}, dir+"/", testRegistry(), func(string) (remoteFS, error) { return fs, nil })
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	te, ok := err.(*TransferError)
	if !ok {
		t.Fatalf("expected *TransferError, got %T", err)
	}
	if te.Variant != DownloadMultipleRemoteSources {
		t.Fatalf("expected DownloadMultipleRemoteSources, got %v", te.Variant)
	}
}

func TestResolvePlan_AliasNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := ResolvePlan([]string{"missing:/a"}, dir+"/", testRegistry(), func(string) (remoteFS, error) {
		t.Fatal("remoteFSFor should not be called before alias classification fails")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	te, ok := err.(*TransferError)
	if !ok {
		t.Fatalf("expected *TransferError, got %T", err)
	}
	if te.Variant != AliasNotFound {
		t.Fatalf("expected AliasNotFound, got %v", te.Variant)
	}
}

func TestResolvePlan_GlobNoMatches(t *testing.T) {
	fs := newFakeFS()
	fs.mkdir("/remote")
	fs.putFile("/remote/readme.md", []byte("x"))

	dir := t.TempDir()

	_, err := ResolvePlan([]string{"srv:/remote/*.txt"}, dir+"/", testRegistry(), func(string) (remoteFS, error) { return fs, nil })
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	te, ok := err.(*TransferError)
	if !ok {
		t.Fatalf("expected *TransferError, got %T", err)
	}
	if te.Variant != GlobNoMatches {
		t.Fatalf("expected GlobNoMatches, got %v", te.Variant)
	}
}
