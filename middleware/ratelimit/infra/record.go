package infra

import (
	"encoding/json"
	"time"

	"recipe-gateway/middleware/ratelimit/domain"
)

// DefaultKeyPrefix mantém o formato de chave já usado no KV: "rate_limit:<ip>".
const DefaultKeyPrefix = "rate_limit:"

// record é a forma serializada de domain.UsageWindow (timestamps em epoch ms).
type record struct {
	Requests     int   `json:"requests"`
	FirstRequest int64 `json:"firstRequest"`
	LastRequest  int64 `json:"lastRequest"`
}

func encodeWindow(w domain.UsageWindow) ([]byte, error) {
	return json.Marshal(record{
		Requests:     w.Requests,
		FirstRequest: w.WindowStart.UnixMilli(),
		LastRequest:  w.LastRequest.UnixMilli(),
	})
}

func decodeWindow(b []byte) (domain.UsageWindow, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.UsageWindow{}, err
	}
	return domain.UsageWindow{
		Requests:    r.Requests,
		WindowStart: time.UnixMilli(r.FirstRequest).UTC(),
		LastRequest: time.UnixMilli(r.LastRequest).UTC(),
	}, nil
}
