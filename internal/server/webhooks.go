package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"taskhub/internal/config"
	"taskhub/internal/domain"
	"taskhub/internal/engine"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
)

// WebhookDispatcher delivers unsent notifications to the configured hooks. A
// notification is marked sent once every enabled hook whose type filter
// matches it has accepted it.
type WebhookDispatcher struct {
	Engine   engine.Engine
	Interval time.Duration
	Log      logrus.FieldLogger

	hooks     []*webhook
	mu        sync.Mutex
	delivered map[int]map[int64]bool
}

type webhook struct {
	cfg     config.WebhookConfig
	filter  typeFilter
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewWebhookDispatcher(e engine.Engine, hooks []config.WebhookConfig, log logrus.FieldLogger) *WebhookDispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &WebhookDispatcher{
		Engine:    e,
		Interval:  defaultWebhookInterval,
		Log:       log,
		delivered: map[int]map[int64]bool{},
	}
	for _, cfg := range hooks {
		if !cfg.IsEnabled() || strings.TrimSpace(cfg.URL) == "" {
			continue
		}
		timeout := defaultWebhookTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		d.hooks = append(d.hooks, &webhook{
			cfg:     cfg,
			filter:  newTypeFilter(cfg.Types),
			client:  &http.Client{Timeout: timeout},
			breaker: newBreaker(cfg.URL, log),
		})
	}
	return d
}

func newBreaker(name string, log logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"webhook": name, "from": from.String(), "to": to.String()}).Warn("webhook circuit breaker state changed")
		},
	})
}

// Enabled reports whether any hook is configured.
func (d *WebhookDispatcher) Enabled() bool { return len(d.hooks) > 0 }

// Run polls until ctx is done.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	if !d.Enabled() {
		return
	}
	interval := d.Interval
	if interval <= 0 {
		interval = defaultWebhookInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce makes one delivery pass and returns how many notifications were
// marked sent.
func (d *WebhookDispatcher) DispatchOnce(ctx context.Context) int {
	sent := 0
	for _, n := range d.Engine.Store.Snapshot().Unsent() {
		if ctx.Err() != nil {
			return sent
		}
		matched, ok := 0, true
		for i, hook := range d.hooks {
			if !hook.filter.match(string(n.Type)) {
				continue
			}
			matched++
			if d.wasDelivered(i, n.ID) {
				continue
			}
			if err := d.deliver(ctx, hook, n); err != nil {
				ok = false
				d.Log.WithError(err).WithFields(logrus.Fields{"webhook": hook.cfg.URL, "notification_id": n.ID}).Warn("webhook delivery failed")
				continue
			}
			d.markDelivered(i, n.ID)
		}
		if matched == 0 || !ok {
			continue
		}
		if _, err := d.Engine.MarkNotificationSent(ctx, n.ID); err != nil {
			d.Log.WithError(err).WithField("notification_id", n.ID).Error("mark notification sent")
			continue
		}
		d.forget(n.ID)
		sent++
	}
	return sent
}

func (d *WebhookDispatcher) wasDelivered(hook int, id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delivered[hook][id]
}

func (d *WebhookDispatcher) markDelivered(hook int, id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delivered[hook] == nil {
		d.delivered[hook] = map[int64]bool{}
	}
	d.delivered[hook][id] = true
}

func (d *WebhookDispatcher) forget(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ids := range d.delivered {
		delete(ids, id)
	}
}

type webhookNotification struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	TaskID    *int64 `json:"task_id,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func (d *WebhookDispatcher) deliver(ctx context.Context, hook *webhook, n domain.Notification) error {
	data, err := json.Marshal(webhookNotification{
		ID:        n.ID,
		Type:      string(n.Type),
		UserID:    n.UserID,
		TaskID:    n.TaskID,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return err
	}
	_, err = hook.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.cfg.URL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Taskhub-Event", string(n.Type))
		req.Header.Set("X-Taskhub-Delivery", uuid.NewString())
		req.Header.Set("X-Taskhub-Notification", fmt.Sprintf("%d", n.ID))
		if strings.TrimSpace(hook.cfg.Secret) != "" {
			req.Header.Set("X-Taskhub-Secret", hook.cfg.Secret)
		}
		res, err := hook.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
			return nil, fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, nil
	})
	return err
}

type typeFilter struct {
	all bool
	set map[string]struct{}
}

func newTypeFilter(types []string) typeFilter {
	set := make(map[string]struct{}, len(types))
	for _, typ := range types {
		if key := strings.TrimSpace(typ); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return typeFilter{all: true}
	}
	return typeFilter{set: set}
}

func (f typeFilter) match(typ string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[typ]
	return ok
}
