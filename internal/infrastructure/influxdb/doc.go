// Package influxdb writes camera gateway telemetry to InfluxDB v2.
//
// It records one point per handled command (camera_command), one per
// published frame (camera_frame) and a periodic gateway snapshot. Writes
// are batched and never block command handling.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Gateway.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.RecordFrame(0, len(frame), elapsed)
package influxdb
