// Package ajarin is the resilient request core used by the e-learning
// client: every endpoint wrapper funnels through one Request pipeline that
// layers the following around net/http:
//
//   - Endpoint normalization (one canonical route form per logical endpoint)
//   - In-flight de-duplication with per-endpoint latest-wins cancellation
//   - Dual-transport failover (development proxy vs. direct backend address)
//   - Bounded retries with exponential backoff + jitter and Retry-After support
//   - Single-flight access-token refresh on 401 with exactly-once replay
//   - Envelope unwrapping and error classification across the backend's
//     response shapes
//   - Optional circuit breaker, client-side rate limiting and Prometheus metrics
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - One explicit *Client value, no package-level mutable state
//   - Safe concurrent use of a single *Client instance
//   - Pluggable credential persistence (memory, bbolt, or your own store)
//
// Typical usage:
//
//	cfg, _ := ajarin.LoadConfigFromEnv()
//	client := ajarin.New(
//	    ajarin.WithConfig(cfg),
//	    ajarin.WithCredentialStore(ajarin.NewCredentialStore(ajarin.NewMemoryStore())),
//	    ajarin.WithMetrics(),
//	)
//	var topics []string
//	err := client.GetJSON(ctx, "/modules/public/topics", &topics)
//
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger) + enable debug flags selectively (WithDebug /
// WithDebugConfig) for insight without noise.
package ajarin
