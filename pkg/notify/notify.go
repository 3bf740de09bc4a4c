// Package notify delivers the summary of a completed sync run to operators.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// Title heads every sync notification.
const Title = "Feishu directory sync completed"

// Message is a rendered notification.
type Message struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Text joins the title and lines.
func (m Message) Text() string {
	return m.Title + "\n" + strings.Join(m.Lines, "\n")
}

// Notifier delivers messages. Delivery failures are reported, never retried
// by the caller.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Build renders the notification for a run. It reports false for dry runs
// and runs without changes, which are not announced.
func Build(r *pkgsync.Result) (Message, bool) {
	if r == nil || r.DryRun || !r.HasChanges() {
		return Message{}, false
	}

	msg := Message{Title: Title}
	if d := r.Departments; d != nil {
		msg.Lines = append(msg.Lines, fmt.Sprintf("Departments: %d created, %d updated, %d disabled", d.Created, d.Updated, d.Disabled))
	}
	if u := r.Users; u != nil {
		msg.Lines = append(msg.Lines, fmt.Sprintf("Users: %d created, %d updated, %d disabled", u.Created, u.Updated, u.Disabled))
		if line := preview("Created", u.Changes.Created, false); line != "" {
			msg.Lines = append(msg.Lines, line)
		}
		if line := preview("Updated", u.Changes.Updated, true); line != "" {
			msg.Lines = append(msg.Lines, line)
		}
		if line := preview("Disabled", u.Changes.Disabled, false); line != "" {
			msg.Lines = append(msg.Lines, line)
		}
	}
	if n := r.Failed(); n > 0 {
		msg.Lines = append(msg.Lines, fmt.Sprintf("Failed writes: %d", n))
	}
	return msg, true
}

// preview lists the first few changes and summarizes the rest.
func preview(verb string, changes []differ.Change, details bool) string {
	if len(changes) == 0 {
		return ""
	}
	n := min(len(changes), constants.NotifyPreviewSize)
	names := make([]string, n)
	for i, c := range changes[:n] {
		names[i] = c.Label()
		if details && len(c.Changes) > 0 {
			names[i] += " [" + c.Describe() + "]"
		}
	}
	line := fmt.Sprintf("%s: %s", verb, strings.Join(names, ", "))
	if rest := len(changes) - n; rest > 0 {
		line += fmt.Sprintf(" and %d more", rest)
	}
	return line
}

// Nop discards messages.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Message) error { return nil }

// Log writes messages to the context logger.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(ctx context.Context, msg Message) error {
	logging.FromContext(ctx).Info().Strs("lines", msg.Lines).Msg(msg.Title)
	return nil
}

// Webhook posts messages as a text card to an incoming-webhook URL, in the
// shape Feishu custom bots accept.
type Webhook struct {
	url    string
	client *transport.Client
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url string, opts ...transport.Option) (*Webhook, error) {
	if url == "" {
		return nil, errors.NewConfigError("notify", "webhook url is required", errors.ErrInvalidInput)
	}
	return &Webhook{url: url, client: transport.New("webhook", opts...)}, nil
}

type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Err implements transport.Envelope.
func (r *webhookResponse) Err() error {
	if r.Code == 0 {
		return nil
	}
	return &errors.APIError{Service: "webhook", StatusCode: http.StatusOK, Code: r.Code, Message: r.Msg}
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	body := map[string]any{
		"msg_type": "text",
		"content":  map[string]string{"text": msg.Text()},
	}
	var resp webhookResponse
	if err := w.client.DoJSON(ctx, http.MethodPost, w.url, body, &resp); err != nil {
		return errors.WrapResource("send", "notification", w.url, err)
	}
	return nil
}

// Multi fans a message out to several notifiers and returns the first error.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
