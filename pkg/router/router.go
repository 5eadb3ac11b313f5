package router

import (
	"context"
	"sync"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/rs/zerolog"
)

// RoutePoint identifies one end of a failover transition.
type RoutePoint struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// FailoverEvent records a single failover. At most one is pending at a
// time; ConsumeLastFailover reads and clears it.
type FailoverEvent struct {
	From      RoutePoint `json:"from"`
	To        RoutePoint `json:"to"`
	Reason    string     `json:"reason"`
	Timestamp time.Time  `json:"timestamp"`
}

// Config holds router configuration.
type Config struct {
	Routes     []Route
	MaxRetries int
	Logger     zerolog.Logger
}

// Router walks the failover chain for each chat call, retrying transient
// failures per provider and tripping circuit breakers on repeated ones.
type Router struct {
	providers map[string]llm.Provider
	breakers  *BreakerRegistry
	routes    []Route

	maxRetries      int
	pendingFailover *FailoverEvent
	mu              sync.RWMutex
	logger          zerolog.Logger

	// sleep is swapped out in tests to avoid real backoff waits
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a router with the given routes and retry budget.
func New(cfg Config) *Router {
	return &Router{
		providers:  make(map[string]llm.Provider),
		breakers:   NewBreakerRegistry(cfg.Logger),
		routes:     append([]Route(nil), cfg.Routes...),
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterProvider stores the adapter and unconditionally clears any
// circuit state for its name, even when past failures were caused by
// something re-registration cannot fix (such as bad credentials).
func (r *Router) RegisterProvider(p llm.Provider) {
	r.mu.Lock()
	r.providers[p.Name()] = p
	r.mu.Unlock()

	r.breakers.Reset(p.Name())

	r.logger.Info().Str("provider", p.Name()).Msg("Provider registered")
}

// Provider returns a registered adapter by name.
func (r *Router) Provider(name string) (llm.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Routes returns a copy of the configured route list.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Route(nil), r.routes...)
}

// SetRoutes replaces the configured route list.
func (r *Router) SetRoutes(routes []Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append([]Route(nil), routes...)
}

// Breakers exposes the circuit breaker registry for status surfaces.
func (r *Router) Breakers() *BreakerRegistry {
	return r.breakers
}

// ConsumeLastFailover returns the pending failover event and clears it. A
// second consecutive call returns nil.
func (r *Router) ConsumeLastFailover() *FailoverEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	event := r.pendingFailover
	r.pendingFailover = nil
	return event
}

func (r *Router) clearPendingFailover() {
	r.mu.Lock()
	r.pendingFailover = nil
	r.mu.Unlock()
}

func (r *Router) storeFailover(from, to Route, reason string) {
	r.mu.Lock()
	r.pendingFailover = &FailoverEvent{
		From:      RoutePoint{Provider: from.Provider, Model: from.Model},
		To:        RoutePoint{Provider: to.Provider, Model: to.Model},
		Reason:    reason,
		Timestamp: time.Now(),
	}
	r.mu.Unlock()

	r.logger.Warn().
		Str("from", from.Provider).
		Str("to", to.Provider).
		Str("reason", reason).
		Msg("Failover")
}

// Chat walks the failover chain and returns the first successful response.
func (r *Router) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	chain := BuildChain(r.Routes(), req.Provider, req.Model)
	r.clearPendingFailover()

	var lastErr error
	attempted := false

	for i, route := range chain {
		provider, ok := r.Provider(route.Provider)
		if !ok {
			r.logger.Debug().Str("provider", route.Provider).Msg("Skipping unregistered provider")
			continue
		}
		if r.breakers.IsOpen(route.Provider) {
			r.logger.Debug().Str("provider", route.Provider).Msg("Skipping provider with open circuit")
			continue
		}

		attempted = true

		resp, err := r.executeWithRetry(ctx, provider, r.routeRequest(req, route))
		if err == nil {
			if i != 0 {
				r.storeFailover(chain[0], route, failoverReason(lastErr))
			}
			r.breakers.RecordSuccess(route.Provider)
			return resp, nil
		}

		lastErr = err
		r.breakers.RecordFailure(route.Provider)
		r.logger.Warn().
			Str("provider", route.Provider).
			Err(err).
			Msg("Route failed, trying next")
	}

	if !attempted {
		return nil, ErrNoProvidersAvailable
	}
	return nil, &RouteExhaustedError{LastErr: lastErr}
}

// routeRequest rebinds the request onto a specific route's model.
func (r *Router) routeRequest(req llm.ChatRequest, route Route) llm.ChatRequest {
	if route.Model != "" {
		req.Model = route.Model
	}
	req.Provider = route.Provider
	return req
}

func failoverReason(lastErr error) string {
	if lastErr != nil {
		return lastErr.Error()
	}
	return "primary route skipped"
}

// executeWithRetry makes up to maxRetries+1 attempts against one provider.
// A non-retryable failure aborts immediately; retryable attempts back off
// exponentially (1s, 2s, 4s, ...).
func (r *Router) executeWithRetry(ctx context.Context, provider llm.Provider, req llm.ChatRequest) (*llm.ChatResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := provider.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !llm.IsRetryable(err) {
			return nil, err
		}

		if attempt == r.maxRetries {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		r.logger.Info().
			Str("provider", provider.Name()).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying after error")

		if err := r.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// ChatStream walks the same failover chain as Chat, forwarding chunks as
// they arrive. Breaker and failover bookkeeping happen only once a route's
// stream fully resolves or fails. Once chunks have been forwarded the
// stream can no longer fail over; the error is surfaced to the consumer.
func (r *Router) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	chain := BuildChain(r.Routes(), req.Provider, req.Model)
	r.clearPendingFailover()

	out := make(chan llm.StreamEvent)

	go func() {
		defer close(out)

		var lastErr error
		attempted := false

		for i, route := range chain {
			provider, ok := r.Provider(route.Provider)
			if !ok {
				continue
			}
			if r.breakers.IsOpen(route.Provider) {
				continue
			}

			attempted = true

			resolved, err := r.streamWithRetry(ctx, provider, r.routeRequest(req, route), out, func() {
				if i != 0 {
					r.storeFailover(chain[0], route, failoverReason(lastErr))
				}
			})
			if resolved {
				return
			}

			lastErr = err
			r.logger.Warn().
				Str("provider", route.Provider).
				Err(err).
				Msg("Stream route failed, trying next")
		}

		if !attempted {
			sendEvent(ctx, out, llm.StreamEvent{Err: ErrNoProvidersAvailable})
			return
		}
		sendEvent(ctx, out, llm.StreamEvent{Err: &RouteExhaustedError{LastErr: lastErr}})
	}()

	return out, nil
}

// sendEvent forwards ev unless the consumer's context is already gone, so
// an abandoned stream never pins the forwarding goroutine. It reports
// whether the event was delivered.
func sendEvent(ctx context.Context, out chan<- llm.StreamEvent, ev llm.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamWithRetry attempts one route's stream with the retry budget.
// resolved is true when a terminal event reached the consumer, whether
// success or an unrecoverable mid-stream failure.
func (r *Router) streamWithRetry(ctx context.Context, provider llm.Provider, req llm.ChatRequest, out chan<- llm.StreamEvent, onSuccess func()) (resolved bool, lastErr error) {
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		events, err := provider.ChatStream(ctx, req)
		if err == nil {
			emitted := false
			var streamErr error

			for ev := range events {
				switch {
				case ev.Err != nil:
					streamErr = ev.Err
				case ev.Final != nil:
					onSuccess()
					r.breakers.RecordSuccess(provider.Name())
					sendEvent(ctx, out, ev)
					return true, nil
				default:
					if !sendEvent(ctx, out, ev) {
						// Consumer gone; not a provider failure.
						return true, ctx.Err()
					}
					emitted = true
				}
			}

			err = streamErr
			if emitted {
				// Consumer already saw partial output; cannot replay.
				r.breakers.RecordFailure(provider.Name())
				sendEvent(ctx, out, llm.StreamEvent{Err: err})
				return true, err
			}
		}

		lastErr = err

		if !llm.IsRetryable(err) {
			break
		}
		if attempt == r.maxRetries {
			break
		}
		if sleepErr := r.sleep(ctx, time.Duration(1<<attempt)*time.Second); sleepErr != nil {
			r.breakers.RecordFailure(provider.Name())
			return false, sleepErr
		}
	}

	r.breakers.RecordFailure(provider.Name())
	return false, lastErr
}
