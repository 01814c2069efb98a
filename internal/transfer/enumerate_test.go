package transfer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func drain(t *testing.T, ctx context.Context, plan *Plan, fs *fakeFS) []TransferTask {
	t.Helper()
	out := make(chan TransferTask, 32)
	errCh := make(chan error, 1)
	go func() { errCh <- Enumerate(ctx, plan, fs, out) }()

	var tasks []TransferTask
	for task := range out {
		tasks = append(tasks, task)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	return tasks
}

func TestEnumerate_DownloadDirectoryTree(t *testing.T) {
	fs := newFakeFS()
	fs.mkdir("/remote/app")
	fs.mkdir("/remote/app/logs")
	fs.putFile("/remote/app/main.go", []byte("package main"))
	fs.putFile("/remote/app/logs/out.log", []byte("log line"))

	dir := t.TempDir()
	plan := &Plan{
		Direction:   Download,
		Sources:     []string{"/remote/app"},
		Target:      Endpoint{Remote: false, Path: dir},
		TargetKind:  ExistingDirectory,
		RemoteAlias: AliasEntry{Alias: "srv"},
	}

	tasks := drain(t, context.Background(), plan, fs)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(tasks), tasks)
	}

	var dests []string
	for _, task := range tasks {
		dests = append(dests, task.DestinationPath)
	}
	sort.Strings(dests)

	want := []string{
		filepath.Join(dir, "logs", "out.log"),
		filepath.Join(dir, "main.go"),
	}
	sort.Strings(want)
	for i := range want {
		if dests[i] != want[i] {
			t.Errorf("dest[%d] = %q, want %q", i, dests[i], want[i])
		}
	}
}

func TestEnumerate_DownloadGlobPredicate(t *testing.T) {
	fs := newFakeFS()
	fs.mkdir("/remote")
	fs.putFile("/remote/a.txt", []byte("a"))
	fs.putFile("/remote/b.txt", []byte("b"))
	fs.putFile("/remote/c.md", []byte("c"))

	dir := t.TempDir()
	plan := &Plan{
		Direction:   Download,
		Sources:     []string{"/remote/*.txt"},
		Target:      Endpoint{Remote: false, Path: dir},
		TargetKind:  ExistingDirectory,
		GlobPred:    &GlobPredicate{Dir: "/remote", Pattern: "*.txt"},
		RemoteAlias: AliasEntry{Alias: "srv"},
	}

	tasks := drain(t, context.Background(), plan, fs)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(tasks), tasks)
	}
}

func TestEnumerate_UploadDirectoryTree(t *testing.T) {
	dir := t.TempDir()
	srcRoot := filepath.Join(dir, "project")
	if err := os.MkdirAll(filepath.Join(srcRoot, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "sub", "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := newFakeFS()
	fs.mkdir("/remote/project")

	plan := &Plan{
		Direction:   Upload,
		Sources:     []string{srcRoot},
		Target:      Endpoint{Remote: true, Alias: "srv", Path: "/remote/project"},
		TargetKind:  ExistingDirectory,
		RemoteAlias: AliasEntry{Alias: "srv"},
		RemoteRoot:  "/remote/project",
	}

	tasks := drain(t, context.Background(), plan, fs)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(tasks), tasks)
	}

	var dests []string
	for _, task := range tasks {
		dests = append(dests, task.DestinationPath)
	}
	sort.Strings(dests)
	want := []string{"/remote/project/a.txt", "/remote/project/sub/b.txt"}
	for i := range want {
		if dests[i] != want[i] {
			t.Errorf("dest[%d] = %q, want %q", i, dests[i], want[i])
		}
	}
}
