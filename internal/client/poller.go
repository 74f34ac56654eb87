package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Second

// FetchFunc refreshes one dashboard section. ctx carries the per-request
// timeout.
type FetchFunc func(ctx context.Context) error

// Section is one independently refreshed part of a dashboard.
type Section struct {
	Name  string
	Fetch FetchFunc
}

// Poller refreshes dashboard sections on a fixed interval until its context
// is cancelled. Sections are fetched concurrently and fail in isolation: an
// error in one is reported to OnError and the others, and later ticks, carry
// on.
type Poller struct {
	sections []Section
	interval time.Duration
	timeout  time.Duration
	onError  func(section string, err error)
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithRequestTimeout bounds every fetch. Defaults to the interval.
func WithRequestTimeout(d time.Duration) PollerOption {
	return func(p *Poller) { p.timeout = d }
}

func WithOnError(fn func(section string, err error)) PollerOption {
	return func(p *Poller) { p.onError = fn }
}

func NewPoller(sections []Section, opts ...PollerOption) *Poller {
	p := &Poller{sections: sections, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(p)
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.timeout <= 0 {
		p.timeout = p.interval
	}
	if p.onError == nil {
		p.onError = func(section string, err error) {
			zap.L().Warn("poll section failed", zap.String("section", section), zap.Error(err))
		}
	}
	return p
}

// Run fetches every section at once, then again on each tick. It blocks
// until ctx is done and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Start runs the poller in the background. The returned stop cancels it and
// waits for the loop to exit.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx) //nolint:errcheck
	}()
	return func() {
		cancel()
		<-done
	}
}

func (p *Poller) tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range p.sections {
		wg.Add(1)
		go func(s Section) {
			defer wg.Done()
			p.fetch(ctx, s)
		}(s)
	}
	wg.Wait()
}

func (p *Poller) fetch(ctx context.Context, s Section) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := s.Fetch(reqCtx)
	if err == nil || ctx.Err() != nil {
		return
	}
	p.onError(s.Name, err)
}
