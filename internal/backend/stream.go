package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// Subscription is an open progress stream. Lines delivers the data of every
// message event in arrival order and is closed when the stream ends.
type Subscription struct {
	lines  chan string
	body   io.ReadCloser
	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Subscribe opens the progress stream for one submission. It returns once the
// server has answered; frames are then read in the background.
func (c *Client) Subscribe(ctx context.Context, token string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	_, span := c.tracer.Start(ctx, "backend.subscribe")
	defer span.End()
	span.SetAttributes(attribute.String("submission.token", token))

	streamURL := c.ProgressURL(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		cancel()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Set headers for Server-Sent Events streaming
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to open progress stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		err := fmt.Errorf("progress stream returned status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	s := &Subscription{
		lines:  make(chan string),
		body:   resp.Body,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.read(ctx)
	return s, nil
}

// Lines returns the channel of log lines.
func (s *Subscription) Lines() <-chan string {
	return s.lines
}

// Close ends the stream. Safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close()
	})
	<-s.done
	return nil
}

// Err reports why the stream ended; nil after a clean end or Close.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

func (s *Subscription) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.lines)

	err := readEvents(s.body, func(data string) bool {
		select {
		case s.lines <- data:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("Progress stream read error: %v", err)
		s.err = err
	}
}

var errStopped = errors.New("stopped")

// readEvents parses a text/event-stream body and calls emit with the data of
// each dispatched message event. Named events, comments and the id/retry
// fields are skipped. An event with no data lines is not dispatched.
func readEvents(r io.Reader, emit func(data string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		data      []string
		eventType string
	)
	dispatch := func() bool {
		defer func() {
			data = data[:0]
			eventType = ""
		}()
		if len(data) == 0 {
			return true
		}
		if eventType != "" && eventType != "message" {
			return true
		}
		return emit(strings.Join(data, "\n"))
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if !dispatch() {
				return errStopped
			}
			continue
		}
		// Skip comments
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data = append(data, value)
		case "event":
			eventType = value
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}
