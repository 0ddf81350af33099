package mqtt

import (
	"fmt"
)

func (c *Client) maxPayload() int {
	if c.cfg.MaxPayload > 0 {
		return c.cfg.MaxPayload
	}
	return defaultMaxPayload
}

func (c *Client) validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if limit := c.maxPayload(); len(payload) > limit {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrPayloadTooLarge, len(payload), limit)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Publish sends a message and waits for the broker to acknowledge it
// (for QoS 1 and 2) or for the write to complete (QoS 0).
//
// Returns ErrPayloadTooLarge if the payload exceeds mqtt.max_payload.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := c.validatePublish(topic, payload, qos); err != nil {
		return err
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishAsync queues a non-retained message without waiting for the
// acknowledgement. Validation errors are returned; delivery failures are
// logged when they surface.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte) error {
	if err := c.validatePublish(topic, payload, qos); err != nil {
		return err
	}

	token := c.client.Publish(topic, qos, false, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("async publish failed", "topic", topic, "bytes", len(payload), "error", err)
			}
		}
	}()

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
