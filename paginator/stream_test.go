package paginator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type streamRecorder struct {
	mutex     sync.Mutex
	batches   [][]Row
	progress  []StreamProgress
	summaries []StreamSummary
	errors    []error
}

func (r *streamRecorder) onData(records []Row, progress StreamProgress) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.batches = append(r.batches, records)
	r.progress = append(r.progress, progress)
}

func (r *streamRecorder) onComplete(summary StreamSummary) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.summaries = append(r.summaries, summary)
}

func (r *streamRecorder) onError(err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.errors = append(r.errors, err)
}

func (r *streamRecorder) snapshot() (batches int, completes int, errs []error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.batches), len(r.summaries), append([]error{}, r.errors...)
}

func sseHandler(events []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, event := range events {
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

func TestStreamAll_DataThenComplete(t *testing.T) {

	server := httptest.NewServer(sseHandler([]string{
		`{"type":"start","table":"files","limit":10000}`,
		`{"type":"data","batch":1,"records":[{"id":"r1"},{"id":"r2"}],"has_more":true}`,
		`{"type":"data","batch":2,"records":[{"id":"r3"}],"has_more":false}`,
		`{"type":"complete","total_records":3,"elapsed_ms":1.5,"records_per_second":2000}`,
	}))
	defer server.Close()

	recorder := &streamRecorder{}
	p, err := New(server.URL, Config{Table: "files"}, Hooks{OnError: recorder.onError})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = p.StreamAll(context.Background(), recorder.onData, recorder.onComplete, 2)
	if err != nil {
		t.Fatalf("stream all: %v", err)
	}

	waitFor(t, "stream to finish", func() bool { return !p.IsStreaming() })

	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()

	if len(recorder.batches) != 2 {
		t.Fatalf("expected 2 data batches, got %d", len(recorder.batches))
	}
	if len(recorder.batches[0]) != 2 || recorder.batches[0][0]["id"] != "r1" {
		t.Fatalf("unexpected first batch: %v", recorder.batches[0])
	}
	if recorder.progress[0].TotalSoFar != 2 || !recorder.progress[0].HasMore {
		t.Fatalf("unexpected first progress: %+v", recorder.progress[0])
	}
	if recorder.progress[1].TotalSoFar != 3 || recorder.progress[1].HasMore {
		t.Fatalf("unexpected second progress: %+v", recorder.progress[1])
	}
	if len(recorder.summaries) != 1 || recorder.summaries[0].TotalRecords != 3 {
		t.Fatalf("unexpected summaries: %+v", recorder.summaries)
	}
	if len(recorder.errors) != 0 {
		t.Fatalf("unexpected errors: %v", recorder.errors)
	}
}

func TestStreamAll_MalformedMessageDoesNotAbort(t *testing.T) {

	server := httptest.NewServer(sseHandler([]string{
		`{"type":"data","records":[{"id":"r1"}],"has_more":true}`,
		`{not json at all`,
		`{"type":"data","records":[{"id":"r2"}],"has_more":false}`,
		`{"type":"complete","total_records":2}`,
	}))
	defer server.Close()

	recorder := &streamRecorder{}
	p, err := New(server.URL, Config{Table: "files"}, Hooks{OnError: recorder.onError})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := p.StreamAll(context.Background(), recorder.onData, recorder.onComplete, 1); err != nil {
		t.Fatalf("stream all: %v", err)
	}

	waitFor(t, "stream to finish", func() bool { return !p.IsStreaming() })

	batches, completes, errs := recorder.snapshot()
	if batches != 2 {
		t.Fatalf("expected both well-formed batches, got %d", batches)
	}
	if completes != 1 {
		t.Fatalf("expected completion, got %d", completes)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 parse error, got %v", errs)
	}
	parseErr := &ParseError{}
	if !errors.As(errs[0], &parseErr) {
		t.Fatalf("expected ParseError, got %T", errs[0])
	}
}

func TestStreamAll_ServerErrorEvent(t *testing.T) {

	server := httptest.NewServer(sseHandler([]string{
		`{"type":"error","error":"table 'files' not found"}`,
	}))
	defer server.Close()

	recorder := &streamRecorder{}
	p, err := New(server.URL, Config{Table: "files"}, Hooks{OnError: recorder.onError})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := p.StreamAll(context.Background(), recorder.onData, recorder.onComplete, 1); err != nil {
		t.Fatalf("stream all: %v", err)
	}

	waitFor(t, "stream to finish", func() bool { return !p.IsStreaming() })

	batches, completes, errs := recorder.snapshot()
	if batches != 0 || completes != 0 {
		t.Fatalf("expected no data callbacks, got %d batches %d completes", batches, completes)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	streamErr := &StreamError{}
	if !errors.As(errs[0], &streamErr) {
		t.Fatalf("expected StreamError, got %T", errs[0])
	}
}

func TestStreamAll_HttpError(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	recorder := &streamRecorder{}
	p, err := New(server.URL, Config{Table: "files"}, Hooks{OnError: recorder.onError})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = p.StreamAll(context.Background(), recorder.onData, recorder.onComplete, 1)

	httpErr := &HttpError{}
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected HttpError 503, got %v", err)
	}
	if p.IsStreaming() {
		t.Fatalf("streaming flag must be cleared")
	}
}

func TestStreamAll_SecondStreamIsNoop(t *testing.T) {

	requests := int32(0)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", `{"type":"start","table":"files","limit":10000}`)
		flusher.Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	p, err := New(server.URL, Config{Table: "files"}, Hooks{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := p.StreamAll(context.Background(), nil, nil, 1); err != nil {
		t.Fatalf("stream all: %v", err)
	}
	waitFor(t, "stream to open", func() bool { return p.IsStreaming() })

	if err := p.StreamAll(context.Background(), nil, nil, 1); err != nil {
		t.Fatalf("second stream must be a no-op, got %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Fatalf("expected single connection, got %d", n)
	}

	close(release)
	p.StopStreaming()
}

func TestStopStreaming_SuppressesCallbacks(t *testing.T) {

	firstBatch := make(chan struct{})
	proceed := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", `{"type":"data","records":[{"id":"r1"}],"has_more":true}`)
		flusher.Flush()
		<-proceed
		fmt.Fprintf(w, "data: %s\n\n", `{"type":"data","records":[{"id":"r2"}],"has_more":false}`)
		fmt.Fprintf(w, "data: %s\n\n", `{"type":"complete","total_records":2}`)
		flusher.Flush()
	}))
	defer server.Close()

	recorder := &streamRecorder{}
	p, err := New(server.URL, Config{Table: "files"}, Hooks{OnError: recorder.onError})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	onData := func(records []Row, progress StreamProgress) {
		recorder.onData(records, progress)
		select {
		case firstBatch <- struct{}{}:
		default:
		}
	}

	if err := p.StreamAll(context.Background(), onData, recorder.onComplete, 1); err != nil {
		t.Fatalf("stream all: %v", err)
	}

	<-firstBatch
	p.StopStreaming()

	if p.IsStreaming() {
		t.Fatalf("streaming must be false after StopStreaming")
	}

	close(proceed)
	time.Sleep(100 * time.Millisecond)

	batches, completes, _ := recorder.snapshot()
	if batches != 1 {
		t.Fatalf("expected callbacks to stop after StopStreaming, got %d batches", batches)
	}
	if completes != 0 {
		t.Fatalf("unexpected completion after StopStreaming")
	}

	// Idempotent.
	p.StopStreaming()
}

func TestStopStreaming_NoopWithoutStream(t *testing.T) {

	p, err := New("http://unused", Config{Table: "files"}, Hooks{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	p.StopStreaming() // must not panic
	if p.IsStreaming() {
		t.Fatalf("streaming must stay false")
	}
}
