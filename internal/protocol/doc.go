// Package protocol defines the gateway's wire envelopes and codecs.
//
// Inbound command envelope (JSON):
//
//	{"transaction_id": "t-1", "camera_idx": 0, "cmd_idx": 4,
//	 "data": {"startx": "0", "starty": "0", "width": "640", "height": "480", "bin": "1", "img_type": "0"}}
//
// transaction_id, camera_idx and cmd_idx are required; data is optional.
// Parameter values are strings and are only parsed by the command that
// uses them. Numeric and boolean values are accepted and converted.
//
// Outbound response envelope (JSON):
//
//	{"transaction_id": "t-1", "camera_idx": "0", "cmd_idx": "4", "data": "{\"startx\":0,...}"}
//
// Indices are string-encoded and data carries the result payload as JSON
// text. The MessagePack codec uses the same field names with native
// integers and embeds the payload as a nested map, so frames travel as
// binary rather than base64.
package protocol
