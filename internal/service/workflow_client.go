package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/logging"
)

// ActionMessage is the wire form of an action command, shared by the HTTP and
// Kafka publishers.
type ActionMessage struct {
	CommandID string         `json:"command_id"`
	OrderID   domain.OrderID `json:"order_id"`
	Action    domain.Action  `json:"action"`
	State     domain.State   `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

func newActionMessage(cmd domain.ActionCommand) ActionMessage {
	return ActionMessage{
		CommandID: cmd.ID.String(),
		OrderID:   cmd.OrderID,
		Action:    cmd.Action,
		State:     cmd.State,
		CreatedAt: cmd.CreatedAt,
	}
}

// WorkflowClient posts action commands to the external order workflow.
type WorkflowClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewWorkflowClient(baseURL string) *WorkflowClient {
	return &WorkflowClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *WorkflowClient) Publish(ctx context.Context, cmd domain.ActionCommand) error {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(newActionMessage(cmd))
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}

	url := c.baseURL + "/actions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Publish: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", cmd.ID.String())

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("Publish: send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("workflow response received",
		"command_id", cmd.ID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Publish: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
