package paginator

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	json2 "github.com/go-json-experiment/json"
)

// StreamProgress accompanies every data batch delivered to onData.
type StreamProgress struct {
	TotalSoFar int
	HasMore    bool
}

// StreamSummary is delivered to onComplete when the server finishes the
// stream.
type StreamSummary struct {
	TotalRecords     int
	ElapsedMS        float64
	RecordsPerSecond float64
}

// streamLimit is the nominal page limit sent on streaming queries; the
// server paces the stream with batch_size, not with it.
const streamLimit = 10000

type streamSession struct {
	cancel  context.CancelFunc
	body    io.Closer
	stopped atomic.Bool
}

type streamMessage struct {
	Type             string  `json:"type"`
	Table            string  `json:"table"`
	Limit            int     `json:"limit"`
	Records          []Row   `json:"records"`
	HasMore          bool    `json:"has_more"`
	TotalRecords     int     `json:"total_records"`
	ElapsedMS        float64 `json:"elapsed_ms"`
	RecordsPerSecond float64 `json:"records_per_second"`
	Error            string  `json:"error"`
}

// StreamAll retrieves the entire filtered/joined view over one server-push
// connection instead of discrete page loads. It returns once the connection
// is established; batches arrive through onData and completion through
// onComplete, both invoked from a background goroutine. Only one stream per
// paginator may be open; further calls are a warned no-op until it ends.
func (p *Paginator) StreamAll(ctx context.Context, onData func(records []Row, progress StreamProgress), onComplete func(summary StreamSummary), batchSize int) error {

	p.mutex.Lock()
	if p.streaming {
		p.mutex.Unlock()
		p.logger.Println("WARNING: stream already in progress")
		return nil
	}
	p.streaming = true
	query := p.buildQuery("")
	p.mutex.Unlock()

	if batchSize <= 0 {
		batchSize = 100
	}
	query.Set("limit", strconv.Itoa(streamLimit))
	query.Set("batch_size", strconv.Itoa(batchSize))
	query.Del("cursor")
	query.Del("sort_column")
	query.Del("sort_direction")

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, "GET", p.base+"/api/query/stream?"+query.Encode(), nil)
	if err != nil {
		cancel()
		return p.failStream(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return p.failStream(&StreamError{Message: err.Error()})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return p.failStream(&HttpError{StatusCode: resp.StatusCode})
	}

	session := &streamSession{
		cancel: cancel,
		body:   resp.Body,
	}

	p.mutex.Lock()
	p.session = session
	p.mutex.Unlock()

	go p.readStream(session, resp.Body, onData, onComplete)

	return nil
}

// StopStreaming force-closes any open stream. Safe to call at any time, in
// particular when no stream is open. No callbacks fire for the session after
// it returns.
func (p *Paginator) StopStreaming() {

	p.mutex.Lock()
	session := p.session
	p.session = nil
	p.streaming = false
	p.mutex.Unlock()

	if session != nil {
		session.stopped.Store(true)
		session.cancel()
		session.body.Close()
	}
}

func (p *Paginator) failStream(err error) error {
	p.mutex.Lock()
	p.streaming = false
	p.mutex.Unlock()
	p.hooks.OnError(err)
	return err
}

// readStream consumes server-sent events until complete, error or transport
// failure. One malformed message is reported and skipped, it never aborts
// the session.
func (p *Paginator) readStream(session *streamSession, body io.Reader, onData func(records []Row, progress StreamProgress), onComplete func(summary StreamSummary)) {

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	totalSoFar := 0
	data := []string{}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ":") {
			continue // heartbeat comment
		}
		if payload, found := strings.CutPrefix(line, "data:"); found {
			data = append(data, strings.TrimPrefix(payload, " "))
			continue
		}
		if line != "" {
			continue // other SSE fields are not used by this protocol
		}
		if len(data) == 0 {
			continue
		}

		raw := strings.Join(data, "\n")
		data = data[:0]

		if session.stopped.Load() {
			return
		}

		message := &streamMessage{}
		err := json2.Unmarshal([]byte(raw), message)
		if err != nil {
			p.hooks.OnError(&ParseError{Raw: raw, Err: err})
			continue
		}

		switch message.Type {

		case "start":
			p.hooks.OnProgress(Progress{
				Type:  "start",
				Table: message.Table,
				Limit: message.Limit,
			})

		case "data":
			totalSoFar += len(message.Records)
			if onData != nil {
				onData(message.Records, StreamProgress{
					TotalSoFar: totalSoFar,
					HasMore:    message.HasMore,
				})
			}
			p.hooks.OnProgress(Progress{
				Type:       "data",
				TotalSoFar: totalSoFar,
				HasMore:    message.HasMore,
			})

		case "complete":
			if onComplete != nil {
				onComplete(StreamSummary{
					TotalRecords:     message.TotalRecords,
					ElapsedMS:        message.ElapsedMS,
					RecordsPerSecond: message.RecordsPerSecond,
				})
			}
			p.hooks.OnProgress(Progress{
				Type:         "complete",
				TotalRecords: message.TotalRecords,
				ElapsedMS:    message.ElapsedMS,
			})
			p.finishStream(session)
			return

		case "error":
			p.hooks.OnError(&StreamError{Message: message.Error})
			p.finishStream(session)
			return

		default:
			p.logger.Printf("WARNING: unknown stream message type '%s'", message.Type)
		}
	}

	// Transport failure or server went away without a complete event.
	if !session.stopped.Load() {
		err := scanner.Err()
		message := "connection closed unexpectedly"
		if err != nil {
			message = err.Error()
		}
		p.hooks.OnError(&StreamError{Message: message})
	}
	p.finishStream(session)
}

func (p *Paginator) finishStream(session *streamSession) {

	p.mutex.Lock()
	if p.session == session {
		p.session = nil
		p.streaming = false
	}
	p.mutex.Unlock()

	session.cancel()
	session.body.Close()
}
