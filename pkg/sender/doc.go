// Package sender delivers batches to a telemetry collector over HTTP.
//
// Each batch is encoded to JSON, compressed as raw DEFLATE and posted with
// Content-Type application/octet-stream. Identity and the method name travel
// in the query string. The collector answers with an envelope:
//
//	{"response":{"status":"OK"}}
//	{"error":{"message":"bad token"}}
//
// Only an OK status without an error counts as delivered.
//
// # Usage
//
//	client := sender.NewHTTPClient(12*time.Minute, 10*time.Minute)
//	s := sender.NewHTTPSender(client, codec.NewJSON(), logger)
//
//	metadata := sender.Metadata{
//	    ServiceURL: "https://collector.example.com/api",
//	    Token:      "app-token",
//	    DeviceID:   "0b6f...",
//	    Platform:   "linux",
//	    DeviceType: "server",
//	}
//
//	if err := s.Send(ctx, b, metadata); err != nil {
//	    // keep b queued and retry later
//	}
//
// # Custom Senders
//
// Implement the Sender interface to deliver to other destinations.
// A Sender must not retry on its own.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package sender
