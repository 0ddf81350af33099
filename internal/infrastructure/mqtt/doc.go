// Package mqtt provides the broker connection for the camera gateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Subscription tracking and restoration after reconnect
//   - Acknowledged and best-effort publishing with a payload ceiling
//   - Last Will and Testament on the gateway status topic
//
// Command and init subscriptions survive reconnects without touching
// device state. Handlers are wrapped with panic recovery so a bad message
// cannot take down the paho callback goroutine.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	err = client.Subscribe(topics.Command(), 1, handler)
package mqtt
