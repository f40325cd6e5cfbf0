// Package natsutil wraps NATS publish, subscribe and request/reply with JSON
// encoding and OpenTelemetry context propagation through message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// Conn is the subset of *nats.Conn used for outbound messages.
type Conn interface {
	PublishMsg(*nats.Msg) error
	RequestMsgWithContext(context.Context, *nats.Msg) (*nats.Msg, error)
}

var _ Conn = (*nats.Conn)(nil)

// headerCarrier adapts nats.Msg headers to a propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

func message(ctx context.Context, subject string, data []byte) *nats.Msg {
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg
}

// Publish sends v as JSON on subject.
func Publish[T any](ctx context.Context, nc Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	return nc.PublishMsg(message(ctx, subject, data))
}

// Subscribe delivers JSON messages on subject to handler.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, Handler(handler))
}

// Handler decodes a message as T and calls handler with the sender's trace
// context. Messages that do not decode as T are dropped.
func Handler[T any](handler func(context.Context, T)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	}
}

// RequestRaw sends an already encoded body and returns the reply body. The
// deadline comes from ctx.
func RequestRaw(ctx context.Context, nc Conn, subject string, body []byte) ([]byte, error) {
	resp, err := nc.RequestMsgWithContext(ctx, message(ctx, subject, body))
	if err != nil {
		return nil, fmt.Errorf("natsutil: request %s: %w", subject, err)
	}
	return resp.Data, nil
}
