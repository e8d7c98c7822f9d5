// Package syncworker periodically uploads unsynced punches to the
// configured remote server, shaped after the pack's rate limiter's
// start-once/stop-once ticking idiom.
package syncworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/metrics"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/log"
)

const (
	syncBatchSize  = 100
	requestTimeout = 15 * time.Second
)

// Status is the worker's externally-polled state.
type Status struct {
	Enabled       bool   `json:"enabled"`
	Running       bool   `json:"running"`
	ServerURL     string `json:"server_url"`
	UnsyncedCount int    `json:"unsynced_count"`
}

// SyncWorker uploads unsynced punches to server.url on a ticker and on
// demand; Stop joins the background goroutine before returning.
type SyncWorker struct {
	store      *store.Store
	httpClient *http.Client
	logger     *log.Logger

	mu      sync.Mutex
	enabled bool
	url     string
	apiKey  string
	running bool

	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func New(s *store.Store, enabled bool, serverURL, apiKey string, intervalMinutes int) *SyncWorker {
	return &SyncWorker{
		store:      s,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.New("syncworker"),
		enabled:    enabled,
		url:        serverURL,
		apiKey:     apiKey,
		interval:   time.Duration(intervalMinutes) * time.Minute,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the ticking loop; safe to call multiple times.
func (w *SyncWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.running = true
		w.mu.Unlock()
		go w.loop(ctx)
	})
}

// Stop signals the loop to exit and waits for it to finish.
func (w *SyncWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.doneCh
}

func (w *SyncWorker) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if w.interval <= 0 {
		w.interval = 5 * time.Minute
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.SyncNow(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SyncNow runs one sync pass immediately, regardless of the ticker.
func (w *SyncWorker) SyncNow(ctx context.Context) {
	w.mu.Lock()
	enabled, url, apiKey := w.enabled, w.url, w.apiKey
	w.mu.Unlock()

	if !enabled {
		return
	}

	punches, err := w.store.GetUnsyncedPunches(ctx, syncBatchSize)
	if err != nil {
		metrics.SyncOutcomes.WithLabelValues("fetch_error").Inc()
		w.logger.Error(err, "fetch unsynced punches failed")
		return
	}
	if len(punches) == 0 {
		metrics.SyncOutcomes.WithLabelValues("empty").Inc()
		return
	}

	body, err := json.Marshal(punches)
	if err != nil {
		metrics.SyncOutcomes.WithLabelValues("marshal_error").Inc()
		w.logger.Error(err, "marshal punches failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		metrics.SyncOutcomes.WithLabelValues("request_error").Inc()
		w.logger.Error(err, "build sync request failed")
		w.markBatchFailed(ctx, punches, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		metrics.SyncOutcomes.WithLabelValues("request_error").Inc()
		w.logger.Warn("sync request failed", map[string]interface{}{"error": err.Error()})
		w.markBatchFailed(ctx, punches, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := fmt.Sprintf("server returned %d: %s", resp.StatusCode, string(respBody))
		metrics.SyncOutcomes.WithLabelValues("rejected").Inc()
		w.logger.Warn("sync request rejected", map[string]interface{}{"status": resp.StatusCode})
		w.markBatchFailed(ctx, punches, msg)
		return
	}

	ids := make([]int64, len(punches))
	for i, p := range punches {
		ids[i] = p.ID
	}
	if err := w.store.MarkPunchesSynced(ctx, ids); err != nil {
		metrics.SyncOutcomes.WithLabelValues("mark_synced_error").Inc()
		w.logger.Error(err, "mark punches synced failed")
		return
	}
	metrics.SyncOutcomes.WithLabelValues("synced").Inc()
}

// markBatchFailed records a short error on the batch head; the remaining
// punches stay unsynced and are retried next tick per the spec's "leave
// rows unsynced to be retried" contract.
func (w *SyncWorker) markBatchFailed(ctx context.Context, punches []store.Punch, msg string) {
	if len(punches) == 0 {
		return
	}
	if err := w.store.MarkPunchSyncError(ctx, punches[0].ID, msg); err != nil {
		w.logger.Error(err, "mark punch sync error failed")
	}
}

// GetStatus reports current enablement, liveness, and backlog size.
func (w *SyncWorker) GetStatus(ctx context.Context) Status {
	w.mu.Lock()
	enabled, url, running := w.enabled, w.url, w.running
	w.mu.Unlock()

	unsynced, _ := w.store.CountUnsyncedPunches(ctx)
	return Status{Enabled: enabled, Running: running, ServerURL: url, UnsyncedCount: unsynced}
}
