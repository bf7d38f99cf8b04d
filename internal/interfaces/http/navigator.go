package http

import (
	"context"
	"sync"

	"rbac-console/internal/ports"
)

// PendingRedirect is the console's Navigator. A route scheduled by the
// session expiry handler is held until the operator's next session poll.
type PendingRedirect struct {
	logger ports.Logger

	mu    sync.Mutex
	route string
}

func NewPendingRedirect(logger ports.Logger) *PendingRedirect {
	return &PendingRedirect{logger: logger}
}

func (p *PendingRedirect) Navigate(ctx context.Context, route string) {
	p.mu.Lock()
	p.route = route
	p.mu.Unlock()
	p.logger.Info(ctx, "redirect scheduled", "route", route)
}

// Take returns the pending route and clears it.
func (p *PendingRedirect) Take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.route
	p.route = ""
	return r
}
