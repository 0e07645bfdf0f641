package ingest

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFSource extracts plain text from each page of a PDF file.
type PDFSource struct{}

func (PDFSource) Pages(ctx context.Context, path string) (pages []string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: %v", ErrUnreadable, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %w", ErrUnreadable, path, i, err)
		}

		pages[i-1] = text
	}

	return pages, nil
}
