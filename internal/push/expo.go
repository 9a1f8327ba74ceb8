package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// DefaultExpoEndpoint is the Expo push send API.
const DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

type expoSender struct {
	endpoint string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type expoTicket struct {
	Data struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// NewExpo returns a sender for the Expo push API. Sends share one rate limiter.
func NewExpo(opts Options, logger *slog.Logger) Sender {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultExpoEndpoint
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return &expoSender{
		endpoint: endpoint,
		token:    opts.AccessToken,
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, max(opts.Burst, 1)),
		logger:   logger.With("sender", ProviderExpo),
	}
}

func (s *expoSender) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrDelivery, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, bytes.TrimSpace(data))
	}

	var ticket expoTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return fmt.Errorf("%w: decode ticket: %w", ErrDelivery, err)
	}

	if len(ticket.Errors) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrDelivery, ticket.Errors[0].Code, ticket.Errors[0].Message)
	}

	if ticket.Data.Status != "ok" {
		if ticket.Data.Details.Error == "DeviceNotRegistered" {
			return fmt.Errorf("%w: %s", ErrDeviceNotRegistered, ticket.Data.Message)
		}
		return fmt.Errorf("%w: %s", ErrDelivery, ticket.Data.Message)
	}

	s.logger.Debug("push accepted", "ticket", ticket.Data.ID)
	return nil
}
