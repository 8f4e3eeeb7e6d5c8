package schedule

import (
	"bytes"
	"container/heap"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"strings"
	"testing"
)

func TestEntryHeap_Ordering(t *testing.T) {
	tests := []struct {
		name    string
		entries []*entry
		want    []string // task keys in pop order
	}{
		{
			"higher priority first",
			[]*entry{
				{task: SingleImage{SourceID: "low"}, priority: 1, seq: 0},
				{task: SingleImage{SourceID: "high"}, priority: 5, seq: 1},
			},
			[]string{"high", "low"},
		},
		{
			"equal priority is FIFO",
			[]*entry{
				{task: SingleImage{SourceID: "first"}, priority: 2, seq: 0},
				{task: SingleImage{SourceID: "second"}, priority: 2, seq: 1},
				{task: SingleImage{SourceID: "third"}, priority: 2, seq: 2},
			},
			[]string{"first", "second", "third"},
		},
		{
			"mixed",
			[]*entry{
				{task: SingleImage{SourceID: "a"}, priority: 2, seq: 0},
				{task: SingleImage{SourceID: "b"}, priority: 3, seq: 1},
				{task: SingleImage{SourceID: "c"}, priority: 3, seq: 2},
				{task: SingleImage{SourceID: "d"}, priority: 1, seq: 3},
			},
			[]string{"b", "c", "a", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h entryHeap
			for _, e := range tt.entries {
				heap.Push(&h, e)
			}
			var got []string
			for h.Len() > 0 {
				got = append(got, heap.Pop(&h).(*entry).task.Key())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pop order: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_FragmentPreemptsImage(t *testing.T) {
	buf := image.NewNRGBA(image.Rect(0, 0, 60, 60))
	fragment := PageFragment{FileID: "doc.pdf", Page: 1, TotalPages: 1, Buffer: buf}
	plain := SingleImage{SourceID: "photo.png", Data: pngBytes(t)}

	orders := []struct {
		name       string
		first      Task
		firstPrio  int
		second     Task
		secondPrio int
	}{
		{"image enqueued first", plain, PriorityImage, fragment, PriorityPage},
		{"fragment enqueued first", fragment, PriorityPage, plain, PriorityImage},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			obs := newRecorder()
			s := New(emptyDetector{}, obs)

			mustEnqueue(t, s, tt.first, tt.firstPrio)
			mustEnqueue(t, s, tt.second, tt.secondPrio)
			s.SignalNoMoreTasks()
			if err := s.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if len(obs.results) != 2 {
				t.Fatalf("results: got %d, want 2", len(obs.results))
			}
			if obs.results[0].Key != "doc.pdf#1" {
				t.Errorf("first processed: got %s, want doc.pdf#1", obs.results[0].Key)
			}
			if obs.results[1].Key != "photo.png" {
				t.Errorf("second processed: got %s, want photo.png", obs.results[1].Key)
			}
		})
	}
}

func TestScheduler_AllDoneFiresOnceAfterDrain(t *testing.T) {
	obs := newRecorder()
	var s *Scheduler
	calls := 0
	det := funcDetector(func(image.Image) []string {
		calls++
		if calls == 1 {
			// Producer finishes while the queue still holds two tasks.
			s.SignalNoMoreTasks()
		}
		return nil
	})
	s = New(det, obs)

	for i := 1; i <= 3; i++ {
		buf := image.NewNRGBA(image.Rect(0, 0, 60, 60))
		mustEnqueue(t, s, PageFragment{FileID: "f.pdf", Page: i, TotalPages: 3, Buffer: buf}, PriorityPage)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(obs.allDone, []int{3}) {
		t.Fatalf("allDone events: got %v, want exactly [3]", obs.allDone)
	}
	// Completion is the final event, after the third result.
	last := obs.log[len(obs.log)-1]
	if last != "done:3" {
		t.Errorf("last event: got %s, want done:3", last)
	}
	resultCount := 0
	for _, ev := range obs.log {
		if strings.HasPrefix(ev, "done:") && resultCount != 3 {
			t.Errorf("completion fired after %d results, want 3", resultCount)
		}
		if strings.HasPrefix(ev, "result:") {
			resultCount++
		}
	}
}

func TestScheduler_ProgressPerFragment(t *testing.T) {
	obs := newRecorder()
	s := New(emptyDetector{}, obs)

	for i := 1; i <= 3; i++ {
		buf := image.NewNRGBA(image.Rect(0, 0, 60, 60))
		mustEnqueue(t, s, PageFragment{FileID: "f.pdf", Page: i, TotalPages: 3, Buffer: buf}, PriorityPage)
	}
	s.SignalNoMoreTasks()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"progress:f.pdf:1/3:page1",
		"progress:f.pdf:2/3:page2",
		"progress:f.pdf:3/3:page3",
	}
	if !reflect.DeepEqual(obs.progress, want) {
		t.Errorf("progress events: got %v, want %v", obs.progress, want)
	}
}

func TestScheduler_NoProgressForSingleImages(t *testing.T) {
	obs := newRecorder()
	s := New(emptyDetector{}, obs)

	mustEnqueue(t, s, SingleImage{SourceID: "a.png", Data: pngBytes(t)}, PriorityImage)
	s.SignalNoMoreTasks()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(obs.progress) != 0 {
		t.Errorf("progress events for single image: got %v, want none", obs.progress)
	}
}

func TestScheduler_BadBytesIsTaskScopedError(t *testing.T) {
	obs := newRecorder()
	s := New(emptyDetector{}, obs)

	mustEnqueue(t, s, SingleImage{SourceID: "broken", Data: []byte("not an image")}, PriorityImage)
	mustEnqueue(t, s, SingleImage{SourceID: "fine", Data: pngBytes(t)}, PriorityImage)
	s.SignalNoMoreTasks()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(obs.results) != 2 {
		t.Fatalf("results: got %d, want 2", len(obs.results))
	}
	if obs.results[0].Status != StatusError || obs.results[0].Err == "" {
		t.Errorf("broken task: got status %s (err %q), want error", obs.results[0].Status, obs.results[0].Err)
	}
	if obs.results[1].Status != StatusNoCode {
		t.Errorf("healthy task after a failure: got %s, want %s", obs.results[1].Status, StatusNoCode)
	}
	if !reflect.DeepEqual(obs.allDone, []int{2}) {
		t.Errorf("allDone: got %v, want [2]", obs.allDone)
	}
}

func TestScheduler_PanickingDetectorIsRecovered(t *testing.T) {
	obs := newRecorder()
	det := funcDetector(func(image.Image) []string { panic("engine exploded") })
	s := New(det, obs)

	buf := image.NewNRGBA(image.Rect(0, 0, 60, 60))
	mustEnqueue(t, s, PageFragment{FileID: "f.pdf", Page: 1, TotalPages: 1, Buffer: buf}, PriorityPage)
	s.SignalNoMoreTasks()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(obs.results) != 1 || obs.results[0].Status != StatusError {
		t.Fatalf("results: got %+v, want one error result", obs.results)
	}
	if !strings.Contains(obs.results[0].Err, "panicked") {
		t.Errorf("error message %q does not mention the panic", obs.results[0].Err)
	}
}

func TestScheduler_NilBufferIsTaskScopedError(t *testing.T) {
	obs := newRecorder()
	s := New(emptyDetector{}, obs)

	mustEnqueue(t, s, PageFragment{FileID: "f.pdf", Page: 1, TotalPages: 1, Buffer: nil}, PriorityPage)
	s.SignalNoMoreTasks()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(obs.results) != 1 || obs.results[0].Status != StatusError {
		t.Fatalf("results: got %+v, want one error result", obs.results)
	}
}

func TestScheduler_EnqueueAfterSignalFails(t *testing.T) {
	s := New(emptyDetector{}, newRecorder())

	s.SignalNoMoreTasks()

	err := s.Enqueue(SingleImage{SourceID: "late", Data: nil}, PriorityImage)
	if err != ErrClosed {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestScheduler_CancelledContext(t *testing.T) {
	s := New(emptyDetector{}, newRecorder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); err != context.Canceled {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

// Helper functions

type emptyDetector struct{}

func (emptyDetector) Detect(image.Image) []string { return nil }

type funcDetector func(image.Image) []string

func (f funcDetector) Detect(img image.Image) []string { return f(img) }

// recorder captures observer events in arrival order.
type recorder struct {
	log      []string
	results  []Result
	progress []string
	allDone  []int
}

func newRecorder() *recorder { return &recorder{} }

func (r *recorder) OnResult(res Result) {
	r.results = append(r.results, res)
	r.log = append(r.log, "result:"+res.Key)
}

func (r *recorder) OnProgress(fileID string, processed, expected, currentPage int) {
	ev := fmt.Sprintf("progress:%s:%d/%d:page%d", fileID, processed, expected, currentPage)
	r.progress = append(r.progress, ev)
	r.log = append(r.log, ev)
}

func (r *recorder) OnAllDone(total int) {
	r.allDone = append(r.allDone, total)
	r.log = append(r.log, fmt.Sprintf("done:%d", total))
}

func mustEnqueue(t *testing.T, s *Scheduler, task Task, priority int) {
	t.Helper()
	if err := s.Enqueue(task, priority); err != nil {
		t.Fatalf("Enqueue(%s): %v", task.Key(), err)
	}
}

// pngBytes encodes a small white image as PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 60, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}
