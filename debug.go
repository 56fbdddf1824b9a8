package ajarin

import (
	"fmt"
	"math/rand"
)

// DebugConfig selects which pipeline stages emit debug logs when a Logger
// is configured.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogRefresh   bool
	LogDedup     bool
	LogFallback  bool
	LogEnvelope  bool
	RequestIDGen func() string
}

// DefaultDebugConfig enables all stage flags (the Enabled master switch
// still gates everything) with a short random request-ID generator.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogRefresh:   true,
		LogDedup:     true,
		LogFallback:  true,
		LogEnvelope:  true,
		RequestIDGen: defaultRequestID,
	}
}

func defaultRequestID() string {
	return fmt.Sprintf("req_%08x", rand.Uint32())
}
