// Package chat talks to the conversational assistant webhook and manages the embedded chat widget.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/preschool/core"
)

const (
	FallbackReply    = "Sorry, I didn't quite get that. Could you rephrase?"
	UnavailableReply = "Sorry, the assistant is unavailable right now. Please try again later."
)

var ErrEmptyMessage = errors.New("message must not be empty")

type (
	request struct {
		Message string `json:"message"`
	}

	response struct {
		Reply   string `json:"reply"`
		Message string `json:"message"`
	}
)

// Client posts user messages to the assistant webhook.
type Client struct {
	client     *rest.Client
	webhookURL string
	logger     core.Logger
}

func NewClient(webhookURL string, timeout time.Duration, logger core.Logger) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(webhookURL, "webhookURL"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Client{
		client:     &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		webhookURL: webhookURL,
		logger:     logger,
	}, nil
}

// Ask returns the assistant's reply to `message`.
// It never fails once the message is valid: a reply without text yields FallbackReply
// and a transport or HTTP failure yields UnavailableReply.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	body, err := json.Marshal(request{Message: message})
	if err != nil {
		return "", errors.Wrap(err, "encoding chat request")
	}
	res, err := c.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.webhookURL,
		Headers: map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		Body:    body,
	})
	if err != nil {
		c.logger.Error("posting to chat webhook", errors.Wrap(err, "posting to chat webhook"))
		return UnavailableReply, nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Error("posting to chat webhook", errors.Errorf("chat webhook status: %d", res.StatusCode))
		return UnavailableReply, nil
	}

	var resp response
	if err = json.Unmarshal([]byte(res.Body), &resp); err != nil {
		c.logger.Warn("decoding chat webhook reply", errors.Wrap(err, "decoding chat webhook reply"))
		return FallbackReply, nil
	}
	switch {
	case strings.TrimSpace(resp.Reply) != "":
		return resp.Reply, nil
	case strings.TrimSpace(resp.Message) != "":
		return resp.Message, nil
	default:
		return FallbackReply, nil
	}
}
