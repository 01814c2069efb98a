package transfer

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFailureSink_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "failures.jsonl")
	sink := NewFailureSink(path)
	defer sink.Close()

	if got := sink.Path(); got != "" {
		t.Fatalf("expected empty path before any write, got %q", got)
	}

	sink.Write(NewTransferError(WorkerIo, "first failure", WithPath("/a")))

	if sink.Path() != path {
		t.Fatalf("expected usable sink with path %q after a write, got %q", path, sink.Path())
	}

	sink.Write(NewTransferError(AliasNotFound, "second failure", WithAlias("srv")))
	sink.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening failure log: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first TransferError
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshaling first line: %v", err)
	}
	if first.Variant != WorkerIo || first.Path != "/a" {
		t.Fatalf("unexpected first record: %+v", first)
	}

	var second TransferError
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshaling second line: %v", err)
	}
	if second.Variant != AliasNotFound || second.Alias != "srv" {
		t.Fatalf("unexpected second record: %+v", second)
	}
}

func TestFailureSink_DegradesSilentlyWhenPathUnusable(t *testing.T) {
	// A path whose parent is a file, not a directory, can never be created.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(blocker, "failures.jsonl")

	sink := NewFailureSink(path)
	defer sink.Close()

	if sink.Path() != "" {
		t.Fatalf("expected broken sink to report empty path, got %q", sink.Path())
	}

	// Must not panic even though the sink never got a writable file.
	sink.Write(NewTransferError(WorkerIo, "dropped"))
}
