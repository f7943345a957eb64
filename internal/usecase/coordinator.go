package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/infra/metrics"
)

// Coordinator is the process-wide registry of active requests and the
// subscription bus that fans request snapshots out to watchers.
//
// Stored values and everything delivered to sinks are deep clones, so
// readers always see a consistent point-in-time view. Delivery is
// best-effort: a full sink drops its oldest snapshot rather than
// blocking the pipeline.
type Coordinator struct {
	mu     sync.RWMutex
	reqs   map[string]*model.Request
	subs   map[string]map[chan *model.Request]struct{}
	global map[chan *model.Request]struct{}
	buffer int
	log    *zerolog.Logger
}

func NewCoordinator(subscriberBuffer int, logger *zerolog.Logger) *Coordinator {
	if subscriberBuffer <= 0 {
		subscriberBuffer = 16
	}
	return &Coordinator{
		reqs:   make(map[string]*model.Request),
		subs:   make(map[string]map[chan *model.Request]struct{}),
		global: make(map[chan *model.Request]struct{}),
		buffer: subscriberBuffer,
		log:    logger,
	}
}

// Register stores a new request; fails if the id is already present.
func (c *Coordinator) Register(req *model.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reqs[req.ID]; ok {
		return domain.ErrAlreadyExists
	}
	c.reqs[req.ID] = req.Clone()
	return nil
}

// Get returns a snapshot of the request with the given id.
func (c *Coordinator) Get(id string) (*model.Request, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req, ok := c.reqs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return req.Clone(), nil
}

// List returns snapshots of every registered request, newest first.
func (c *Coordinator) List() []*model.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Request, 0, len(c.reqs))
	for _, r := range c.reqs {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Subscribe returns a sink that receives snapshots of the given request
// on every publish. The sink is closed on Unsubscribe and on eviction.
func (c *Coordinator) Subscribe(id string) chan *model.Request {
	ch := make(chan *model.Request, c.buffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.subs[id]
	if !ok {
		set = make(map[chan *model.Request]struct{})
		c.subs[id] = set
	}
	set[ch] = struct{}{}
	return ch
}

func (c *Coordinator) Unsubscribe(id string, ch chan *model.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.subs[id]; ok {
		if _, present := set[ch]; present {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(c.subs, id)
		}
	}
}

// SubscribeAll returns a sink that receives snapshots of every request,
// e.g. for an index view.
func (c *Coordinator) SubscribeAll() chan *model.Request {
	ch := make(chan *model.Request, c.buffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global[ch] = struct{}{}
	return ch
}

func (c *Coordinator) UnsubscribeAll(ch chan *model.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.global[ch]; ok {
		delete(c.global, ch)
		close(ch)
	}
}

// Publish atomically replaces the stored request with the newer version
// and delivers a snapshot to every current subscriber.
func (c *Coordinator) Publish(req *model.Request) {
	snap := req.Clone()

	c.mu.Lock()
	if stored, ok := c.reqs[snap.ID]; !ok || !stored.UpdatedAt.After(snap.UpdatedAt) {
		c.reqs[snap.ID] = snap
	}
	// Collect sinks under the lock; send after a downgrade is not worth
	// the complexity, sends are non-blocking anyway.
	for ch := range c.subs[snap.ID] {
		c.offer(ch, snap)
	}
	for ch := range c.global {
		c.offer(ch, snap)
	}
	c.mu.Unlock()
}

// offer delivers without ever blocking: when the sink is full, the
// oldest buffered snapshot is dropped to make room.
func (c *Coordinator) offer(ch chan *model.Request, snap *model.Request) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
		c.log.Warn().Str("request_id", snap.ID).Msg("dropped snapshot for slow subscriber")
	}
}

// Retry resets the request for re-execution and returns a working copy
// for the pipeline to run. step == nil means retry-all.
func (c *Coordinator) Retry(id string, step *model.StepType) (*model.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.reqs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if stored.Status == model.RequestStatusRunning {
		return nil, domain.ErrRequestRunning
	}
	working := stored.Clone()
	if step != nil {
		if working.Step(*step) == nil {
			return nil, domain.ErrInvalidArgument
		}
		working.ResetFrom(*step)
		metrics.IncRetry("step")
	} else {
		working.ResetAll()
		metrics.IncRetry("all")
	}
	c.reqs[id] = working.Clone()
	return working, nil
}

// EvictTerminalBefore drops terminal requests not updated since cutoff
// and closes their per-request sinks. Returns the number evicted.
func (c *Coordinator) EvictTerminalBefore(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, r := range c.reqs {
		if r.Terminal() && r.UpdatedAt.Before(cutoff) {
			delete(c.reqs, id)
			for ch := range c.subs[id] {
				close(ch)
			}
			delete(c.subs, id)
			n++
		}
	}
	return n
}
