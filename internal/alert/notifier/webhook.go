// Package notifier delivers spike alerts to an operator webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// payload is the webhook request body: a human-readable summary plus the raw alert.
type payload struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Alert json.RawMessage `json:"alert"`
}

// alertFields is used to parse only the fields needed for the summary line.
type alertFields struct {
	Product         string  `json:"product"`
	CurrentCount    int64   `json:"current_count"`
	BaselineAvg     float64 `json:"baseline_avg"`
	SpikeMultiplier float64 `json:"spike_multiplier"`
}

// PushAlertJSON posts the alert JSON (Kafka message value) to the webhook URL.
// If parsing fails, the raw JSON is still delivered with a generic summary.
func PushAlertJSON(ctx context.Context, webhookURL string, rawJSON []byte) error {
	if webhookURL == "" {
		return fmt.Errorf("notifier: webhook URL is empty")
	}

	text := "error spike detected"
	var fields alertFields
	if err := json.Unmarshal(rawJSON, &fields); err == nil && fields.Product != "" {
		text = fmt.Sprintf("error spike on %s: %d errors in the last hour (%.1fx the %.2f/h baseline)",
			fields.Product, fields.CurrentCount, fields.SpikeMultiplier, fields.BaselineAvg)
	}

	body, err := json.Marshal(payload{
		Type:  "error_spike",
		Text:  text,
		Alert: json.RawMessage(rawJSON),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(webhookURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notifier: webhook returned %s", resp.Status)
	}
	return nil
}
