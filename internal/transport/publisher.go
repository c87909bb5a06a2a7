// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"time"

	"timegrapher/internal/log"
	"timegrapher/internal/pipeline"
)

// Publisher periodically pulls the latest pipeline snapshot and fans it
// out to every registered transport. It runs in its own goroutine
// between Start and Stop, and skips ticks where no new snapshot was
// published.
type Publisher struct {
	source     func() *pipeline.Snapshot
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	lastSent *pipeline.Snapshot
}

// NewPublisher creates a publisher reading snapshots from source.
// Intervals at or below zero default to 50ms.
func NewPublisher(interval time.Duration, source func() *pipeline.Snapshot, transports ...Transport) *Publisher {
	if interval <= 0 {
		interval = 50 * time.Millisecond
		log.Warnf("Publisher: invalid interval, defaulting to %s", interval)
	}
	return &Publisher{
		source:     source,
		transports: transports,
		interval:   interval,
	}
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	p.wg.Add(1)
	go p.run(p.ticker, p.doneChan)
}

func (p *Publisher) run(ticker *time.Ticker, done chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.publishOnce()
		}
	}
}

func (p *Publisher) publishOnce() {
	snap := p.source()
	if snap == nil || snap == p.lastSent {
		return
	}
	p.lastSent = snap

	for _, t := range p.transports {
		if err := t.Send(snap); err != nil {
			log.Warnf("Publisher: send failed: %v", err)
		}
	}
}

// Stop halts publishing and waits for the goroutine to exit. The
// transports themselves stay open; the owner closes them.
func (p *Publisher) Stop() {
	p.mu.Lock()
	ticker, done := p.ticker, p.doneChan
	p.ticker = nil
	p.mu.Unlock()
	if ticker == nil {
		return
	}

	p.stopOnce.Do(func() {
		ticker.Stop()
		close(done)
	})
	p.wg.Wait()
}
