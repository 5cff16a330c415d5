// Package server assembles the gateway's HTTP surface and owns its
// lifecycle.
//
// # Routes
//
//	/ws             WebSocket relay
//	/               relay for upgrade requests, health body otherwise
//	/health         {"status":"ok","service":...}
//	/health/live    liveness probe
//	/health/ready   readiness: model chain resolves, not every provider failing, usage ledger reachable
//	/version        build information
//	/metrics        Prometheus exposition, when telemetry.metrics is enabled
//
// Every route runs behind recovery, request ID, access logging and trace
// context extraction, outermost first.
//
// # Lifecycle
//
//	srv := server.New(server.Options{Chat: service, Metrics: collector})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start returns after ctx is cancelled and shutdown has finished. Shutdown
// closes the listener, sends a going-away close frame to every relay
// connection and waits for their sessions to be released, then flushes the
// tracer, stops the maintenance scheduler and closes the usage ledger.
package server
