package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/bft-labs/trackship/pkg/batch"
	"github.com/bft-labs/trackship/pkg/log"
)

// Method is the collector method every batch is posted to.
const Method = "server.track"

const maxResponseBytes = 1 << 20

// HTTPSender implements Sender with one POST per batch.
type HTTPSender struct {
	client HTTPClient
	codec  batch.Codec
	logger log.Logger
	now    func() time.Time
}

// Option configures an HTTPSender.
type Option func(*HTTPSender)

// WithClock sets the clock used for the timestamp query parameter.
func WithClock(now func() time.Time) Option {
	return func(s *HTTPSender) {
		if now != nil {
			s.now = now
		}
	}
}

// NewHTTPSender creates a new HTTP sender.
func NewHTTPSender(client HTTPClient, codec batch.Codec, logger log.Logger, opts ...Option) *HTTPSender {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &HTTPSender{
		client: client,
		codec:  codec,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type envelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		Status string `json:"status"`
	} `json:"response"`
}

// Send posts b as a deflated JSON body and checks the collector's reply.
func (s *HTTPSender) Send(ctx context.Context, b *batch.Batch, metadata Metadata) error {
	payload, err := s.codec.EncodeBatch(b.ID, b.ServerID, b.Actions)
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", b.ID, err)
	}
	body, err := batch.Deflate(payload)
	if err != nil {
		return fmt.Errorf("compress batch %d: %w", b.ID, err)
	}

	endpoint, err := s.endpoint(metadata)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	s.logger.Debug("sending batch",
		log.Int64("batch_id", b.ID),
		log.Int("actions", len(b.Actions)),
		log.Int("bytes", len(body)),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send batch %d: %w", b.ID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response for batch %d: %w", b.ID, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: batch %d: status %d: undecodable body: %v", ErrRejected, b.ID, resp.StatusCode, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%w: batch %d: %s", ErrServer, b.ID, env.Error.Message)
	}
	if env.Response == nil || env.Response.Status != "OK" {
		status := ""
		if env.Response != nil {
			status = env.Response.Status
		}
		return fmt.Errorf("%w: batch %d: http %d: status %q", ErrRejected, b.ID, resp.StatusCode, status)
	}
	return nil
}

func (s *HTTPSender) endpoint(metadata Metadata) (string, error) {
	u, err := url.Parse(metadata.ServiceURL)
	if err != nil {
		return "", fmt.Errorf("parse service url: %w", err)
	}

	q := u.Query()
	for k, v := range metadata.Params {
		q.Set(k, v)
	}
	setIfPresent(q, "token", metadata.Token)
	setIfPresent(q, "mobUuid", metadata.DeviceID)
	setIfPresent(q, "platform", metadata.Platform)
	setIfPresent(q, "mobDeviceType", metadata.DeviceType)
	q.Set("method", Method)
	q.Set("timestamp", strconv.FormatInt(s.now().UnixMilli(), 10))

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

var _ Sender = (*HTTPSender)(nil)
