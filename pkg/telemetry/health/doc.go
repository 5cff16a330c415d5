// Package health provides liveness and readiness probes for the gateway.
//
// # Endpoints
//
//   - /health/live: the process is serving
//   - /health/ready: every registered check passes (503 otherwise)
//   - /version: build information
//
// The plain /health endpoint with the {"status":"ok","service":...} body
// lives in the relay handlers package, because it is also served on "/".
//
// # Usage
//
//	checker := health.New("yiyi-gateway", 2*time.Second)
//	checker.RegisterCheck("model_chain", func(ctx context.Context) error {
//	    _, err := routing.BuildChain(config.GetConfig())
//	    return err
//	})
//	mux.Handle("/health/ready", checker.ReadinessHandler())
package health
