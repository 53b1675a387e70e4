package collab

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/sirupsen/logrus"
)

// DefaultFlushInterval paces the relay tier: one outbound flush and one
// inbound poll per tick.
const DefaultFlushInterval = 500 * time.Millisecond

type (
	// RelayTransport is the remote tier: store-and-forward through the
	// relay server's per-project message queue. Outbound messages are
	// batched and flushed on a short interval; a failed flush re-queues the
	// batch at the front so nothing is dropped. Inbound messages are polled
	// by sequence number on the same cadence.
	RelayTransport struct {
		baseURL   string
		projectID string
		token     string
		client    *http.Client
		interval  time.Duration

		mu       sync.Mutex
		queue    []*core.Message
		handlers []func(*core.Message)
		lastSeq  int64

		done      chan struct{}
		closeOnce sync.Once
	}

	// RelayOptions tunes a RelayTransport. Zero values get defaults.
	RelayOptions struct {
		FlushInterval time.Duration
		HTTPClient    *http.Client
	}

	messageBatch struct {
		Messages []*core.Message `json:"messages"`
	}

	appendResponse struct {
		LastSeq int64 `json:"lastSeq"`
	}

	pollResponse struct {
		Messages []core.StoredMessage `json:"messages"`
	}
)

// NewRelayTransport connects to a relay project queue. The token is the
// session JWT handed out by the relay's join endpoint. The flush/poll loop
// starts immediately and runs until Close.
func NewRelayTransport(baseURL, projectID, token string, opts RelayOptions) *RelayTransport {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	t := &RelayTransport{
		baseURL:   baseURL,
		projectID: projectID,
		token:     token,
		client:    opts.HTTPClient,
		interval:  opts.FlushInterval,
		done:      make(chan struct{}),
	}
	go t.loop()
	return t
}

// Broadcast queues the message for the next flush. It never blocks and never
// fails; delivery trouble surfaces as a re-queue inside the flush cycle.
func (t *RelayTransport) Broadcast(msg *core.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, msg)
	return nil
}

func (t *RelayTransport) Subscribe(handler func(*core.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// Close stops the loop after one final flush attempt.
func (t *RelayTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.flush()
	})
	return nil
}

func (t *RelayTransport) loop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.flush()
			t.poll()
		case <-t.done:
			return
		}
	}
}

// flush posts the pending batch. On any failure the batch goes back to the
// front of the queue, ahead of anything queued meanwhile, preserving send
// order for the next cycle.
func (t *RelayTransport) flush() {
	t.mu.Lock()
	if len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.queue
	t.queue = nil
	t.mu.Unlock()

	if err := t.postBatch(batch); err != nil {
		logrus.WithError(err).WithField("batch_size", len(batch)).Warn("Relay flush failed, re-queueing")
		t.mu.Lock()
		t.queue = append(batch, t.queue...)
		t.mu.Unlock()
	}
}

func (t *RelayTransport) postBatch(batch []*core.Message) error {
	body, err := json.Marshal(messageBatch{Messages: batch})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/projects/%s/messages", t.baseURL, t.projectID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var ack appendResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode append response: %w", err)
	}
	// Our own messages advance the cursor too; polling them back would only
	// exercise the echo filter for nothing.
	t.mu.Lock()
	if ack.LastSeq > t.lastSeq {
		t.lastSeq = ack.LastSeq
	}
	t.mu.Unlock()
	return nil
}

// poll fetches everything newer than the last seen sequence and hands it to
// the subscribers. Poll failures are logged and retried next tick; the
// sequence cursor only advances past delivered messages.
func (t *RelayTransport) poll() {
	t.mu.Lock()
	after := t.lastSeq
	handlers := make([]func(*core.Message), len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.Unlock()

	url := fmt.Sprintf("%s/api/v2/projects/%s/messages?after=%d", t.baseURL, t.projectID, after)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		logrus.WithError(err).Debug("Relay poll failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		logrus.WithField("status", resp.StatusCode).Debug("Relay poll rejected")
		return
	}

	var page pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		logrus.WithError(err).Warn("Relay poll returned malformed body")
		return
	}

	for _, stored := range page.Messages {
		t.mu.Lock()
		if stored.Seq > t.lastSeq {
			t.lastSeq = stored.Seq
		}
		t.mu.Unlock()
		if stored.Message == nil {
			continue
		}
		for _, h := range handlers {
			h(stored.Message)
		}
	}
}
