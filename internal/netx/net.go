// Package netx holds the HTTP plumbing used by the REST transport:
// streaming multipart bodies and byte-level upload progress.
package netx

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
)

// ProgressReader counts bytes flowing through r and reports the share of
// total already read as a percentage. Reports are capped at 99: the last
// point is left to the caller, who only knows the upload finished once the
// server has answered.
type ProgressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(percent int)
	mu     sync.Mutex
}

func NewProgressReader(r io.Reader, total int64, report func(percent int)) *ProgressReader {
	return &ProgressReader{r: r, total: total, last: -1, report: report}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.report != nil {
		p.mu.Lock()
		p.read += int64(n)
		percent := int(p.read * 100 / p.total)
		if percent > 99 {
			percent = 99
		}
		changed := percent != p.last
		p.last = percent
		p.mu.Unlock()

		if changed {
			p.report(percent)
		}
	}
	return n, err
}

// MultipartBody streams a single-file multipart/form-data body through a
// pipe so large documents are never buffered in memory. It returns the body
// and the Content-Type header value carrying the boundary.
func MultipartBody(field, filename, contentType string, content io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}
