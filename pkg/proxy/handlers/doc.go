// Package handlers implements the gateway's client-facing endpoints: the
// WebSocket relay and the health probe.
//
// # Relay protocol
//
// Each WebSocket connection owns one session. The client sends request
// frames and receives frames tagged with the request's id:
//
//	-> {"id":"r1","type":"chat","content":"hello"}
//	<- {"id":"r1","type":"chat.delta","content":"Hel"}
//	<- {"id":"r1","type":"chat.delta","content":"lo"}
//	<- {"id":"r1","type":"chat.done"}
//
// A turn that exhausts every model ends with
//
//	<- {"id":"r1","type":"error","error":{"code":"MODEL_ERROR","message":"..."}}
//
// Input that is not a valid request frame is answered with an error frame
// whose id is "unknown" and code INVALID_REQUEST; the connection stays
// open. Several requests may be in flight on one connection; their turns run
// one after another on the shared session.
//
// Closing the connection cancels in-flight turns and deletes the session.
// No frame is written after close.
//
// # Health
//
// HealthHandler answers {"status":"ok","service":"yiyi-gateway"}.
package handlers
