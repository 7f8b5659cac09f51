package storage

import "io"

// ProgressReader counts bytes as they are consumed and reports the transfer
// percentage. It caps reports at 99 so that 100 is only ever emitted by the
// caller once the remote side has acknowledged the whole object.
type ProgressReader struct {
	inner  io.Reader
	total  int64
	read   int64
	last   int
	report func(pct int)
}

// NewProgressReader wraps r, reporting percentages of total as it is read.
func NewProgressReader(r io.Reader, total int64, report func(pct int)) *ProgressReader {
	return &ProgressReader{inner: r, total: total, last: -1, report: report}
}

func (p *ProgressReader) Read(buf []byte) (int, error) {
	n, err := p.inner.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.emit()
	}
	return n, err
}

func (p *ProgressReader) emit() {
	if p.report == nil || p.total <= 0 {
		return
	}

	pct := int(p.read * 100 / p.total)
	if pct > 99 {
		pct = 99
	}
	if pct <= p.last {
		return
	}

	p.last = pct
	p.report(pct)
}
