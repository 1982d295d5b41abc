package gateway

import (
	"fmt"
	"time"

	"github.com/confreg/regpay/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Registry holds the configured gateways and a circuit breaker per gateway
// for outbound calls (order creation, refunds).
type Registry struct {
	gateways        map[string]Gateway
	enabled         map[string]bool
	circuitBreakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewRegistry builds a registry from the given gateways. All registered
// gateways start enabled; SetEnabled applies the admin toggles.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{
		gateways:        make(map[string]Gateway),
		enabled:         make(map[string]bool),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds a gateway and its circuit breaker.
func (r *Registry) Register(g Gateway) {
	r.gateways[g.Name()] = g
	r.enabled[g.Name()] = true
	r.circuitBreakers[g.Name()] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        g.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// SetEnabled flips the admin toggle for a gateway. Disabled gateways still
// resolve for reconciliation (in-flight orders must converge) but Enabled
// reports false so order creation rejects them.
func (r *Registry) SetEnabled(name string, enabled bool) {
	if _, ok := r.gateways[name]; ok {
		r.enabled[name] = enabled
	}
}

// Enabled reports whether new orders may be created on the gateway.
func (r *Registry) Enabled(name string) bool {
	return r.enabled[name]
}

// Get resolves a gateway and its circuit breaker by name.
func (r *Registry) Get(name string) (Gateway, *gobreaker.CircuitBreaker[any], error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, nil, fmt.Errorf("gateway %q: %w", name, errors.ErrGatewayNotFound)
	}
	return g, r.circuitBreakers[name], nil
}
