package upload

import (
	"io"
	"time"
)

// progressChunk is the byte interval between progress emissions. Callbacks
// fire at chunk boundaries, not per read.
const progressChunk = 64 << 10

// progressReader wraps a file's byte stream and reports transfer progress as
// the blob client consumes it. Percent is non-decreasing; finish emits the
// final value of exactly 100. It is used from a single goroutine per file,
// so no locking is needed.
type progressReader struct {
	r      io.Reader
	total  int64
	fileID string
	emit   func(ProgressEvent)

	read        int64
	lastEmitted int64
	lastPercent float64
	started     time.Time
	finished    bool
}

func newProgressReader(r io.Reader, total int64, fileID string, emit func(ProgressEvent)) *progressReader {
	return &progressReader{
		r:       r,
		total:   total,
		fileID:  fileID,
		emit:    emit,
		started: time.Now(),
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.read-p.lastEmitted >= progressChunk {
			p.emitProgress(false)
		}
	}
	return n, err
}

// finish emits the terminal 100% sample. Called once after a successful put;
// no events follow it.
func (p *progressReader) finish() {
	if p.finished {
		return
	}
	p.finished = true
	p.emitProgress(true)
}

func (p *progressReader) emitProgress(final bool) {
	percent := 100.0
	if !final && p.total > 0 {
		percent = float64(p.read) / float64(p.total) * 100
		if percent > 100 {
			percent = 100
		}
	}
	// Keep the sequence monotone even if the source over-reports.
	if percent < p.lastPercent {
		percent = p.lastPercent
	}

	p.lastEmitted = p.read
	p.lastPercent = percent
	p.emit(ProgressEvent{
		FileID:         p.fileID,
		Percent:        percent,
		ThroughputKBps: p.throughputKBps(),
	})
}

// throughputKBps is the instantaneous mean transfer rate since the first read.
func (p *progressReader) throughputKBps() float64 {
	elapsed := time.Since(p.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.read) / 1024 / elapsed
}
