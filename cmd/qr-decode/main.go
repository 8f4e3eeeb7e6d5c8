// Command qr-decode extracts QR payloads from raster images and PDF
// documents. PDFs are rendered page by page and each page is scanned
// independently; results are correlated back to their source file and page.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/Kanantorn/pdf-image-qr-code-decoder/internal/detect"
	"github.com/Kanantorn/pdf-image-qr-code-decoder/internal/render"
	"github.com/Kanantorn/pdf-image-qr-code-decoder/internal/schedule"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	fs := ff.NewFlagSet("qr-decode")
	var (
		jsonOut     = fs.BoolLong("json", "emit one JSON object per result instead of text")
		quiet       = fs.BoolLong("quiet", "suppress progress output")
		showVersion = fs.BoolLong("version", "print version information and exit")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("QR_DECODE")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("qr-decode %s (%s)\n", Version, GitCommit)
		return
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "usage: qr-decode [flags] file...\n\n%s\n", ffhelp.Flags(fs))
		os.Exit(1)
	}

	printer := &printer{json: *jsonOut, quiet: *quiet}
	sched := schedule.New(detect.New(), printer)

	go produce(sched, files)

	if err := sched.Run(context.Background()); err != nil {
		slog.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	if printer.errors > 0 {
		os.Exit(1)
	}
}

// produce submits one task per image file and one task per PDF page, then
// signals that no more tasks are coming. Page fragments get the higher
// priority so documents drain ahead of loose images.
func produce(sched *schedule.Scheduler, files []string) {
	defer sched.SignalNoMoreTasks()

	for _, path := range files {
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			producePDF(sched, path)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("skipping unreadable file", "path", path, "error", err)
			continue
		}
		enqueue(sched, schedule.SingleImage{SourceID: path, Data: data}, schedule.PriorityImage)
	}
}

// producePDF renders every page of one document and submits it as a
// fragment. A page that fails to render is still submitted, with a nil
// buffer, so its failure shows up as a correlated error result rather than
// silently missing from the output.
func producePDF(sched *schedule.Scheduler, path string) {
	doc, err := render.OpenFile(path)
	if err != nil {
		slog.Error("skipping unreadable document", "path", path, "error", err)
		return
	}
	defer doc.Close()

	total := doc.NumPages()
	for page := 1; page <= total; page++ {
		buf, err := doc.RenderPage(page)
		if err != nil {
			slog.Warn("page render failed", "path", path, "page", page, "error", err)
			buf = nil
		}
		enqueue(sched, schedule.PageFragment{
			FileID:     path,
			Page:       page,
			TotalPages: total,
			Buffer:     buf,
		}, schedule.PriorityPage)
	}
}

func enqueue(sched *schedule.Scheduler, task schedule.Task, priority int) {
	if err := sched.Enqueue(task, priority); err != nil {
		slog.Error("enqueue failed", "key", task.Key(), "error", err)
	}
}

// printer is the result aggregator: it renders scheduler events to stdout
// and tallies failures for the exit status.
type printer struct {
	json   bool
	quiet  bool
	errors int
	codes  int
}

func (p *printer) OnResult(res schedule.Result) {
	if res.Status == schedule.StatusError {
		p.errors++
	}
	p.codes += len(res.Payloads)

	if p.json {
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			slog.Error("encoding result", "error", err)
		}
		return
	}

	location := res.Key
	if res.FileID != "" {
		location = fmt.Sprintf("%s page %d/%d", res.FileID, res.Page, res.TotalPages)
	}

	switch res.Status {
	case schedule.StatusSuccess:
		for _, payload := range res.Payloads {
			fmt.Printf("%s: %s\n", location, payload)
		}
	case schedule.StatusNoCode:
		fmt.Printf("%s: no QR code found\n", location)
	case schedule.StatusError:
		fmt.Printf("%s: error: %s\n", location, res.Err)
	}
}

func (p *printer) OnProgress(fileID string, processed, expected, _ int) {
	if p.quiet || p.json {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %d/%d pages scanned\n", fileID, processed, expected)
}

func (p *printer) OnAllDone(total int) {
	if p.json {
		return
	}
	fmt.Printf("done: %d task(s) processed, %d code(s) found\n", total, p.codes)
}
