package transfer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressCallback reports n bytes newly transferred by copyBuffer.
type ProgressCallback func(n int)

// maxVisibleFileBars decouples visible per-file progress bars from worker
// count, matching original_source's 8-slot pb_slot token bucket.
const maxVisibleFileBars = 8

const (
	throttleBytes = 64 * 1024
	throttleTime  = 50 * time.Millisecond
)

// Metrics holds the monotonically increasing counters tracked across the
// whole run. All fields are updated via sync/atomic since workers touch
// them concurrently.
type Metrics struct {
	TotalBytes      int64
	FilesCompleted  int64
	FilesFailed     int64
	SessionRebuilds int64
	SftpRebuilds    int64
	StartTime       time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) AddBytes(n int64)          { atomic.AddInt64(&m.TotalBytes, n) }
func (m *Metrics) FileCompleted()            { atomic.AddInt64(&m.FilesCompleted, 1) }
func (m *Metrics) FileFailed()               { atomic.AddInt64(&m.FilesFailed, 1) }
func (m *Metrics) SessionRebuilt()           { atomic.AddInt64(&m.SessionRebuilds, 1) }
func (m *Metrics) SftpRebuilt()              { atomic.AddInt64(&m.SftpRebuilds, 1) }
func (m *Metrics) snapshotBytes() int64      { return atomic.LoadInt64(&m.TotalBytes) }
func (m *Metrics) snapshotFilesDone() int64  { return atomic.LoadInt64(&m.FilesCompleted) }
func (m *Metrics) snapshotFilesFail() int64  { return atomic.LoadInt64(&m.FilesFailed) }
func (m *Metrics) snapshotSessRebuild() int64 { return atomic.LoadInt64(&m.SessionRebuilds) }
func (m *Metrics) snapshotSftpRebuild() int64 { return atomic.LoadInt64(&m.SftpRebuilds) }

// Throttler batches progress callback invocations so a fast transfer
// doesn't redraw the bar on every single Read. A batch flushes once it
// accumulates throttleBytes or throttleTime has elapsed, whichever first.
type Throttler struct {
	mu        sync.Mutex
	pending   int64
	lastFlush time.Time
}

func NewThrottler() *Throttler {
	return &Throttler{lastFlush: time.Now()}
}

// Add records n newly transferred bytes and invokes flush with the
// accumulated total once a threshold is crossed.
func (t *Throttler) Add(n int, flush func(int64)) {
	t.mu.Lock()
	t.pending += int64(n)
	due := t.pending >= throttleBytes || time.Since(t.lastFlush) >= throttleTime
	var out int64
	if due {
		out = t.pending
		t.pending = 0
		t.lastFlush = time.Now()
	}
	t.mu.Unlock()
	if due {
		flush(out)
	}
}

// Flush forces out any pending bytes not yet reported, called once a file
// finishes so the aggregate bar ends exact.
func (t *Throttler) Flush(flush func(int64)) {
	t.mu.Lock()
	out := t.pending
	t.pending = 0
	t.lastFlush = time.Now()
	t.mu.Unlock()
	if out > 0 {
		flush(out)
	}
}

// Progress owns the aggregate bar, the per-file bar slot token bucket,
// and the Metrics the summary is built from.
type Progress struct {
	Metrics *Metrics

	quiet      bool
	isTerminal bool
	bar        *progressbar.ProgressBar
	slots      chan struct{}
}

// NewProgress constructs a Progress. totalHint seeds the aggregate bar's
// denominator; pass -1 when the total is unknown up front.
func NewProgress(totalHint int64, quiet, isTerminal bool) *Progress {
	p := &Progress{
		Metrics:    NewMetrics(),
		quiet:      quiet,
		isTerminal: isTerminal,
		slots:      make(chan struct{}, maxVisibleFileBars),
	}
	if !p.barsEnabled() {
		return p
	}
	p.bar = progressbar.NewOptions64(totalHint,
		progressbar.OptionSetDescription("total"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
	)
	return p
}

func (p *Progress) barsEnabled() bool {
	return !p.quiet && p.isTerminal
}

// TryAcquireFileSlot attempts to reserve one of the bounded visible
// per-file bar slots without blocking. Callers that fail to acquire still
// transfer the file, just without a dedicated bar.
func (p *Progress) TryAcquireFileSlot() bool {
	if !p.barsEnabled() {
		return false
	}
	select {
	case p.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// ReleaseFileSlot frees a slot acquired by TryAcquireFileSlot.
func (p *Progress) ReleaseFileSlot() {
	select {
	case <-p.slots:
	default:
	}
}

// NewFileBar builds a per-file bar, or nil if bars are disabled.
func (p *Progress) NewFileBar(name string, size int64) *progressbar.ProgressBar {
	if !p.barsEnabled() {
		return nil
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
}

// AddBytes reports n bytes transferred to the aggregate bar and Metrics.
func (p *Progress) AddBytes(n int64) {
	p.Metrics.AddBytes(n)
	if p.bar != nil {
		_ = p.bar.Add64(n)
	}
}

// Summary is the end-of-run report, in both human and JSON form.
type Summary struct {
	TotalBytes      int64   `json:"total_bytes"`
	ElapsedSecs     float64 `json:"elapsed_secs"`
	Files           int64   `json:"files"`
	SessionRebuilds int64   `json:"session_rebuilds"`
	SftpRebuilds    int64   `json:"sftp_rebuilds"`
	Failures        int64   `json:"failures"`
	FailuresPath    string  `json:"failures_path,omitempty"`
}

// BuildSummary snapshots Metrics into a Summary.
func (p *Progress) BuildSummary(failuresPath string) Summary {
	return Summary{
		TotalBytes:      p.Metrics.snapshotBytes(),
		ElapsedSecs:     time.Since(p.Metrics.StartTime).Seconds(),
		Files:           p.Metrics.snapshotFilesDone(),
		SessionRebuilds: p.Metrics.snapshotSessRebuild(),
		SftpRebuilds:    p.Metrics.snapshotSftpRebuild(),
		Failures:        p.Metrics.snapshotFilesFail(),
		FailuresPath:    failuresPath,
	}
}

func (s Summary) String() string {
	rate := float64(0)
	if s.ElapsedSecs > 0 {
		rate = float64(s.TotalBytes) / s.ElapsedSecs
	}
	out := fmt.Sprintf("transferred %d bytes in %.2fs (%.2f B/s), %d files, %d failed, %d session rebuilds, %d sftp rebuilds",
		s.TotalBytes, s.ElapsedSecs, rate, s.Files, s.Failures, s.SessionRebuilds, s.SftpRebuilds)
	if s.FailuresPath != "" {
		out += ", failures logged to " + s.FailuresPath
	}
	return out
}
