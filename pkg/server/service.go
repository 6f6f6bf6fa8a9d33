// Package server exposes the agent over HTTP: a Slack Events endpoint for
// channel mentions and a plain JSON API for direct questions.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/opskb/knowledge-agent/pkg/agent"
)

// Notifier delivers an answer back to the channel the question came from.
type Notifier interface {
	Notify(ctx context.Context, channel, text string) error
}

// Service runs workflow executions on behalf of HTTP handlers. Mentions are
// answered asynchronously: Slack expects an ack within three seconds, so the
// workflow runs in a goroutine and the answer goes out through the Notifier.
type Service struct {
	agent    *agent.Agent
	notifier Notifier
	logger   *slog.Logger
}

func NewService(a *agent.Agent, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agent: a, notifier: notifier, logger: logger}
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// stripMention removes bot mention tags from the message text.
func stripMention(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// HandleMention answers an app_mention event. It returns immediately; the
// workflow and the reply happen in the background.
func (s *Service) HandleMention(user, channel, text string) {
	question := stripMention(text)
	if question == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		state := s.agent.ProcessQuestionFrom(ctx, user, question)

		if s.notifier == nil {
			s.logger.Warn("no notifier configured, dropping answer", "channel", channel)
			return
		}
		if err := s.notifier.Notify(ctx, channel, state.Generation); err != nil {
			s.logger.Error("failed to deliver answer", "channel", channel, "error", err)
		}
	}()
}

// Ask runs the workflow synchronously for the JSON API.
func (s *Service) Ask(ctx context.Context, requester, question string) agent.State {
	return s.agent.ProcessQuestionFrom(ctx, requester, question)
}

// InFlight reports how many runs are currently executing.
func (s *Service) InFlight() int {
	return s.agent.Registry().Len()
}

// SlackNotifier posts messages through the Slack Web API.
type SlackNotifier struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

type SlackOption func(*SlackNotifier)

// WithSlackBaseURL overrides the API endpoint, mainly for tests.
func WithSlackBaseURL(url string) SlackOption {
	return func(n *SlackNotifier) { n.baseURL = url }
}

func NewSlackNotifier(token string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		token:      token,
		baseURL:    "https://slack.com/api",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts text to a channel via chat.postMessage.
func (n *SlackNotifier) Notify(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/chat.postMessage", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to unmarshal slack response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack API error: %s", result.Error)
	}
	return nil
}
