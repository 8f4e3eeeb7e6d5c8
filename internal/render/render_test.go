package render

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestOpen_GarbageBytes(t *testing.T) {
	_, err := Open([]byte("definitely not a document"))

	if err == nil {
		t.Fatal("opening garbage succeeded")
	}
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("got %v, want ErrUnreadable", err)
	}
}

func TestOpen_SinglePagePDF(t *testing.T) {
	doc, err := Open(minimalPDF())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer doc.Close()

	if doc.NumPages() != 1 {
		t.Fatalf("NumPages: got %d, want 1", doc.NumPages())
	}

	buf, err := doc.RenderPage(1)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if buf.Bounds().Dx() < 100 || buf.Bounds().Dy() < 100 {
		t.Errorf("rendered page is %dx%d, want a usable raster",
			buf.Bounds().Dx(), buf.Bounds().Dy())
	}
}

func TestRenderPage_OutOfRange(t *testing.T) {
	doc, err := Open(minimalPDF())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer doc.Close()

	for _, page := range []int{0, 2, -1} {
		if _, err := doc.RenderPage(page); !errors.Is(err, ErrUnreadable) {
			t.Errorf("page %d: got %v, want ErrUnreadable", page, err)
		}
	}
}

// minimalPDF builds a valid one-page PDF with a correct cross-reference
// table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	return buf.Bytes()
}
