package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"
)

const bridgeTimeout = 10 * time.Second

// HTTPBridge pushes outbound value movement to the external token bridge.
// Fungible-token transfers are asynchronous: the bridge accepts the dispatch
// and later calls back on /v1/transfers/ack. Quota refunds are synchronous
// native transfers and either succeed or fail on the spot.
type HTTPBridge struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPBridge builds a bridge client for the supplied base URL.
func NewHTTPBridge(baseURL string, logger *slog.Logger) (*HTTPBridge, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway: bridge URL must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPBridge{
		baseURL: baseURL,
		client:  &http.Client{Timeout: bridgeTimeout},
		logger:  logger,
	}, nil
}

type bridgeTransferRequest struct {
	Token    string `json:"token"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

// Transfer implements convertor.TokenTransferrer.
func (b *HTTPBridge) Transfer(token, receiver string, amount *big.Int) error {
	return b.post("/transfers", bridgeTransferRequest{
		Token:    token,
		Receiver: receiver,
		Amount:   amount.String(),
	})
}

type bridgeRefundRequest struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

// Refund implements convertor.QuotaRefunder.
func (b *HTTPBridge) Refund(receiver string, amount *big.Int) error {
	return b.post("/refunds", bridgeRefundRequest{
		Receiver: receiver,
		Amount:   amount.String(),
	})
}

func (b *HTTPBridge) post(path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gateway: encode bridge request: %w", err)
	}
	resp, err := b.client.Post(b.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: bridge unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: bridge rejected %s with status %d", path, resp.StatusCode)
	}
	return nil
}

// LoggingBridge is the development stand-in used when no bridge URL is
// configured. Dispatches and refunds are accepted unconditionally and logged;
// acknowledgments must then be injected by hand through the HTTP surface.
type LoggingBridge struct {
	logger *slog.Logger
}

// NewLoggingBridge returns a bridge that only records dispatches.
func NewLoggingBridge(logger *slog.Logger) *LoggingBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingBridge{logger: logger}
}

// Transfer implements convertor.TokenTransferrer.
func (b *LoggingBridge) Transfer(token, receiver string, amount *big.Int) error {
	b.logger.Info("transfer dispatched without bridge",
		"token", token, "receiver", receiver, "amount", amount.String())
	return nil
}

// Refund implements convertor.QuotaRefunder.
func (b *LoggingBridge) Refund(receiver string, amount *big.Int) error {
	b.logger.Info("refund issued without bridge",
		"receiver", receiver, "amount", amount.String())
	return nil
}
