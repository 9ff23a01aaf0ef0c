package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/preschool/core"
)

const (
	WidgetTarget      = "#n8n-chat"
	WidgetMode        = "window"
	WidgetUnavailable = "Chat assistant is unavailable right now."
)

var InitialMessages = []string{
	"Hi there! 👋",
	"I'm your preschool assistant. How can I help today?",
}

type WidgetState string

const (
	WidgetIdle      WidgetState = "idle"
	WidgetMounted   WidgetState = "mounted"
	WidgetFailed    WidgetState = "failed"
	WidgetUnmounted WidgetState = "unmounted"
)

type (
	// WidgetConfig is handed to the page embedding the widget.
	WidgetConfig struct {
		WebhookURL        string   `json:"webhookUrl"`
		Target            string   `json:"target"`
		Mode              string   `json:"mode"`
		ShowWelcomeScreen bool     `json:"showWelcomeScreen"`
		InitialMessages   []string `json:"initialMessages"`
		StylesheetURL     string   `json:"stylesheetUrl"`
		ScriptURL         string   `json:"scriptUrl"`
	}

	WidgetStatus struct {
		Config  WidgetConfig `json:"config"`
		State   WidgetState  `json:"state"`
		Message string       `json:"message,omitempty"`
	}
)

func NewWidgetConfig(conf core.ChatConfig) WidgetConfig {
	return WidgetConfig{
		WebhookURL:        conf.WebhookURL,
		Target:            WidgetTarget,
		Mode:              WidgetMode,
		ShowWelcomeScreen: true,
		InitialMessages:   InitialMessages,
		StylesheetURL:     conf.StylesheetURL,
		ScriptURL:         conf.ScriptURL,
	}
}

// Widget is the chat widget of one page. It is mounted at most once until unmounted.
// A load still running when the widget is unmounted is cancelled and its outcome dropped.
type Widget struct {
	conf   WidgetConfig
	client *rest.Client
	logger core.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   WidgetState
	loading chan struct{} // closed when the running load ends
	mounts  int
}

func NewWidget(conf WidgetConfig, timeout time.Duration, logger core.Logger) *Widget {
	ctx, cancel := context.WithCancel(context.Background())
	return &Widget{
		conf:   conf,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		state:  WidgetIdle,
	}
}

func (w *Widget) loadScript(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	res, err := w.client.SendWithContext(ctx, rest.Request{Method: rest.Get, BaseURL: url})
	if err != nil {
		return errors.Wrapf(err, "loading %s", url)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return errors.Errorf("loading %s: status %d", url, res.StatusCode)
	}
	return nil
}

// Mount loads the widget assets. A failure leaves the widget in the failed state, it is never fatal.
// Concurrent mounts wait for the load already running.
func (w *Widget) Mount(ctx context.Context) WidgetStatus {
	w.mu.Lock()
	switch {
	case w.state == WidgetMounted, w.state == WidgetUnmounted:
		defer w.mu.Unlock()
		return w.status()
	case w.loading != nil:
		loading := w.loading
		w.mu.Unlock()
		select {
		case <-loading:
		case <-ctx.Done():
		}
		return w.Status()
	}
	loading := make(chan struct{})
	w.loading = loading
	w.mu.Unlock()

	// the load ends with the widget or with the caller
	loadCtx, cancel := context.WithCancel(w.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := w.loadScript(loadCtx, w.conf.ScriptURL)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = nil
	close(loading)

	switch {
	case w.state == WidgetUnmounted:
	case err != nil && ctx.Err() != nil: // caller gave up: the next mount loads again
	case err != nil:
		w.logger.Warn("loading chat widget", err)
		w.state = WidgetFailed
	default:
		w.state = WidgetMounted
		w.mounts++
	}
	return w.status()
}

// Unmount tears the widget down and cancels a running load; it cannot be mounted again.
func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = WidgetUnmounted
	w.cancel()
}

func (w *Widget) Status() WidgetStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status()
}

// Mounts returns how many times the widget got mounted.
func (w *Widget) Mounts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounts
}

func (w *Widget) status() WidgetStatus {
	s := WidgetStatus{Config: w.conf, State: w.state}
	if w.state == WidgetFailed {
		s.Message = WidgetUnavailable
	}
	return s
}
