package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"tictac-server/pkg/arenadto"
)

// Webhook posts snapshots and events as JSON to an external collaborator
// (broadcast fan-out, chat relay, anything downstream of the engine).
type Webhook struct {
	baseURL string
	http    *fasthttp.Client

	timeout time.Duration
}

type WebhookOption func(*Webhook)

func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.timeout = d }
}

func WithMaxConnsPerHost(n int) WebhookOption {
	return func(w *Webhook) { w.http.MaxConnsPerHost = n }
}

func NewWebhook(baseURL string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) PublishSnapshot(ctx context.Context, snap *arenadto.Snapshot) error {
	return w.post(ctx, "/snapshot", snap)
}

func (w *Webhook) PublishEvent(ctx context.Context, ev *Event) error {
	return w.post(ctx, "/event", ev)
}

func (w *Webhook) post(ctx context.Context, path string, in any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.baseURL + path)
	req.Header.SetContentType("application/json")

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req.SetBody(payload)

	timeout := w.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if err := w.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("notify %s: %w", path, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("notify %s: status %d", path, code)
	}
	return nil
}
