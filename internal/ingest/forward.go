package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/runmat-org/otell/pkg/logger"
)

// ForwardConfig configures the optional tee forwarder.
type ForwardConfig struct {
	Endpoint    string // base URL, e.g. "http://collector:4318"
	Gzip        bool
	Headers     map[string]string
	Timeout     time.Duration
	ChannelSize int
}

// DefaultForwardConfig returns the forwarder defaults.
func DefaultForwardConfig() ForwardConfig {
	return ForwardConfig{Timeout: 5 * time.Second, ChannelSize: 256}
}

type forwardJob struct {
	path string
	body []byte
}

// Forwarder tees raw inbound OTLP payloads to an upstream endpoint
// before the decoder sees them. Failures never fail the ingest: a send
// failure is only logged, and a payload dropped because the queue is
// full is only counted, mirroring the teacher's fire-and-forget write
// channel but pointed at an HTTP client instead of the DB.
type Forwarder struct {
	cfg     ForwardConfig
	client  *http.Client
	jobs    chan forwardJob
	dropped int64
	closeCh chan struct{}
}

// NewForwarder starts the background tee goroutine.
func NewForwarder(cfg ForwardConfig) *Forwarder {
	if cfg.ChannelSize <= 0 {
		cfg.ChannelSize = 256
	}
	f := &Forwarder{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		jobs:    make(chan forwardJob, cfg.ChannelSize),
		closeCh: make(chan struct{}),
	}
	go f.run()
	return f
}

// Tee enqueues a raw payload for forwarding, dropping it without
// blocking the ingest path if the internal queue is full.
func (f *Forwarder) Tee(path string, body []byte) {
	select {
	case f.jobs <- forwardJob{path: path, body: append([]byte(nil), body...)}:
	default:
		f.dropped++
	}
}

// Close signals the tee goroutine to send what is queued and exit. It
// returns without waiting for that drain, and Tee still accepts jobs
// afterwards.
func (f *Forwarder) Close() {
	close(f.closeCh)
}

func (f *Forwarder) run() {
	log := logger.Component("ingest.forward")
	for {
		select {
		case job := <-f.jobs:
			if err := f.send(job); err != nil {
				log.Error().Err(err).Str("path", job.path).Msg("forward failed")
			}
		case <-f.closeCh:
			for {
				select {
				case job := <-f.jobs:
					if err := f.send(job); err != nil {
						log.Error().Err(err).Str("path", job.path).Msg("forward failed")
					}
				default:
					return
				}
			}
		}
	}
}

func (f *Forwarder) send(job forwardJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.Timeout)
	defer cancel()

	body := job.body
	encoding := ""
	if f.cfg.Gzip {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(body); err != nil {
			return fmt.Errorf("gzip compressing payload: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip writer: %w", err)
		}
		body = buf.Bytes()
		encoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Endpoint+job.path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forwarding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return nil
}
