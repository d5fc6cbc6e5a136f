package entropy

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// Pool is a Source backed by random.org's JSON-RPC API with a local pool
// of pre-fetched fractions. Falls back to crypto/rand when the API is
// unavailable or the pool runs dry.
type Pool struct {
	apiKey string
	client *http.Client

	mu   sync.Mutex
	pool []float64
}

// NewPool creates a random.org-backed source. Returns nil if apiKey is
// empty; a nil *Pool still satisfies Source via the crypto fallback.
func NewPool(apiKey string) *Pool {
	if apiKey == "" {
		return nil
	}
	return &Pool{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Float returns a random float64 in [0, 1). Uses the pool, refilling from
// random.org when low.
func (p *Pool) Float() float64 {
	if p == nil {
		return cryptoRandFloat()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pool) < 10 {
		p.refill()
	}

	if len(p.pool) == 0 {
		return cryptoRandFloat()
	}

	val := p.pool[0]
	p.pool = p.pool[1:]
	return val
}

func (p *Pool) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(p.Float() * float64(n)))
}

func (p *Pool) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        p.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return
	}

	resp, err := p.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	p.pool = append(p.pool, result.Result.Random.Data...)
	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
}
