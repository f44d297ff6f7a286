// Package codec converts actions and batches to and from their JSON wire form.
//
// Every encoded action carries a "$type" field holding its [action.Kind].
// Decoding looks the tag up in a registration-time table of payload
// factories, so the wire format never depends on Go type names and
// applications can add kinds of their own with [JSON.Register].
//
// # Wire shape
//
//	{"batchId":7,"serverId":"eu-1","batch":[
//	    {"$type":"event","action":"trackEvent","timestamp":1700000000000,
//	     "userId":"u1","properties":{"k":"v"},"event":"click"}]}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package codec
