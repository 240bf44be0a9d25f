// Package config holds the timing parameters of the broadcast train and the
// per-role configuration of coordinators and nodes.
//
// Timing values use the controller's native units: intervals and delays in
// 1.25 ms units, response slot spacing in 0.125 ms units. Broadcast.Validate
// enforces the constraints the controller imposes on the parameter set; a
// coordinator refuses to start with parameters that fail validation.
//
// Configuration can be loaded from YAML:
//
//	broadcast:
//	  interval_min: 255
//	  interval_max: 255
//	  num_subevents: 5
//	  subevent_interval: 51
//	  response_slot_delay: 5
//	  response_slot_spacing: 32
//	  num_response_slots: 10
//	coordinator:
//	  device_name: "PAwR sync sample"
//	  fill_order: interleaved
//	  discovery_timeout: 10s
//	node:
//	  sample_interval: 5s
package config
