package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type PushConfig struct {
	PushBaseURL string
	PushAPIKey  string
}

// PushRepository posts notifications to the push delivery provider. The
// provider fans out to whatever device tokens it holds for the user.
type PushRepository struct {
	pushConfig PushConfig
}

func NewPushRepository(cfg PushConfig) *PushRepository {
	return &PushRepository{
		cfg,
	}
}

type pushPayload struct {
	UserID uint           `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
}

func (r PushRepository) SendPush(userID uint, title, body string, data map[string]any) (bool, error) {
	url := r.pushConfig.PushBaseURL + "/v1/push"

	payload := pushPayload{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   data,
	}

	payloadByte, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payloadByte))
	if err != nil {
		return false, err
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+r.pushConfig.PushAPIKey)

	res, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return true, nil
	}

	return false, fmt.Errorf("push service returned %v", res.StatusCode)
}
