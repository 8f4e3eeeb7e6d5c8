// Package render turns multi-page documents into per-page pixel buffers.
//
// It is the producer-side collaborator of the scheduler: the detection
// pipeline never touches document formats, it only sees the buffers
// rendered here. Rendering itself is delegated to MuPDF via go-fitz.
package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// ErrUnreadable marks a document that cannot be opened or a page that
// cannot be rendered to a pixel buffer. It is fatal to the affected
// document or page only.
var ErrUnreadable = errors.New("unreadable document")

// Document is an open multi-page document whose pages can be rendered on
// demand. Not safe for concurrent use; the producer renders pages one at a
// time. Close releases the underlying MuPDF handle.
type Document struct {
	doc   *fitz.Document
	pages int
}

// Open parses a document held in memory.
func Open(data []byte) (*Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return &Document{doc: doc, pages: doc.NumPage()}, nil
}

// OpenFile parses a document from disk.
func OpenFile(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return &Document{doc: doc, pages: doc.NumPage()}, nil
}

// NumPages returns the page count of the document.
func (d *Document) NumPages() int { return d.pages }

// RenderPage rasterizes the given 1-based page into a freshly allocated
// buffer the caller exclusively owns.
func (d *Document) RenderPage(page int) (*image.NRGBA, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("%w: page %d of %d", ErrUnreadable, page, d.pages)
	}
	img, err := d.doc.Image(page - 1)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering page %d: %v", ErrUnreadable, page, err)
	}
	return imaging.Clone(img), nil
}

// Close releases the document's resources.
func (d *Document) Close() error {
	return d.doc.Close()
}
