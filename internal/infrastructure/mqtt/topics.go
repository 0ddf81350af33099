package mqtt

import (
	"strings"

	"github.com/nerrad567/camgate/internal/infrastructure/config"
)

// Topics resolves the gateway's configured topic names.
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	client.Subscribe(topics.Command(), 1, handler)
type Topics struct {
	command  string
	init     string
	response string
	status   string
}

// NewTopics builds Topics from configuration.
func NewTopics(cfg config.MQTTTopicsConfig) Topics {
	return Topics{
		command:  cfg.Command,
		init:     cfg.Init,
		response: cfg.Response,
		status:   cfg.Status,
	}
}

// Command is the topic carrying command envelopes.
func (t Topics) Command() string { return t.command }

// Init is the topic carrying re-initialisation requests.
func (t Topics) Init() string { return t.init }

// Response is the topic all command responses and frames are written to.
func (t Topics) Response() string { return t.response }

// Status is the retained gateway status topic. May be empty.
func (t Topics) Status() string { return t.status }

// Inbound returns the topics the gateway subscribes to.
func (t Topics) Inbound() []string {
	return []string{t.command, t.init}
}

// Match reports whether topic matches the subscription filter,
// honouring the + and # wildcards.
func Match(filter, topic string) bool {
	if filter == topic {
		return true
	}

	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")

	for i, seg := range fp {
		if seg == "#" {
			return i == len(fp)-1
		}
		if i >= len(tp) {
			return false
		}
		if seg != "+" && seg != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
