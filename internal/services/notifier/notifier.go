package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/anuja/internal/model"
	"github.com/LeonardoBeccarini/anuja/pkg/rabbitmq"
)

const (
	DefaultTopicTemplate = "advisory/{crop}"
	QoS                  = byte(1)
)

// Notifier pubblica ogni AdvisoryIssuedEvent sul broker MQTT.
type Notifier struct {
	pub       rabbitmq.IPublisher
	topicTmpl string
	log       *zap.SugaredLogger
}

func New(pub rabbitmq.IPublisher, topicTmpl string, log *zap.SugaredLogger) *Notifier {
	if strings.TrimSpace(topicTmpl) == "" {
		topicTmpl = DefaultTopicTemplate
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{pub: pub, topicTmpl: topicTmpl, log: log}
}

// Topic expands {crop} and {city} in the template.
func (n *Notifier) Topic(evt model.AdvisoryIssuedEvent) string {
	return strings.NewReplacer(
		"{crop}", topicSegment(evt.Crop, "unknown"),
		"{city}", topicSegment(evt.City, "none"),
	).Replace(n.topicTmpl)
}

// MQTT wildcards and separators are not allowed inside a level.
func topicSegment(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '-'
		}
		return r
	}, s)
}

// Record implements advisor.Sink. The publish is bounded by ctx and by the
// publisher timeout, so a reconnecting broker never stalls the caller.
func (n *Notifier) Record(ctx context.Context, evt model.AdvisoryIssuedEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notifier: marshal event: %w", err)
	}
	topic := n.Topic(evt)
	if err := n.pub.PublishToQos(ctx, topic, QoS, false, string(b)); err != nil {
		return err
	}
	n.log.Debugf("notifier: published advisory id=%s topic=%s", evt.ID, topic)
	return nil
}

func (n *Notifier) Connected() bool {
	return n != nil && n.pub != nil && n.pub.Connected()
}
