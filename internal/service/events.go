package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	commonredis "github.com/tejasnaveen/Shakti/common/redis"
	"github.com/tejasnaveen/Shakti/internal/domain"
)

// AuthEvent is the audit record emitted for every login and logout.
type AuthEvent struct {
	Type        string      `json:"type"` // login | logout
	Outcome     string      `json:"outcome"`
	Role        domain.Role `json:"role,omitempty"`
	TenantID    string      `json:"tenant_id,omitempty"`
	PrincipalID string      `json:"principal_id,omitempty"`
	Identifier  string      `json:"identifier,omitempty"`
	Host        string      `json:"host,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
	At          time.Time   `json:"at"`
}

// EventPublisher delivers audit events. Failures are reported to the caller,
// who logs them; they never change a login result.
type EventPublisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AuthEvent) error { return nil }

// StreamEventPublisher appends events to a Redis stream.
type StreamEventPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamEventPublisher(client *redis.Client, stream string, maxLen int64) *StreamEventPublisher {
	return &StreamEventPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamEventPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev); err != nil {
		return fmt.Errorf("publish to stream %s: %w", p.stream, err)
	}
	return nil
}

// mqttPublisher is satisfied by *common/mqtt.Client.
type mqttPublisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTEventPublisher publishes events as JSON to topic/<type>.
type MQTTEventPublisher struct {
	client mqttPublisher
	topic  string
}

func NewMQTTEventPublisher(client mqttPublisher, topic string) *MQTTEventPublisher {
	return &MQTTEventPublisher{client: client, topic: topic}
}

func (p *MQTTEventPublisher) Publish(_ context.Context, ev AuthEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(p.topic+"/"+ev.Type, false, b)
}

// MultiPublisher fans out to every sink and joins their errors.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
