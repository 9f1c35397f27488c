package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// buildFunc composes one snapshot payload. The returned bool reports
// whether the underlying subject has reached a terminal state, letting the
// producer emit a final snapshot and then self-terminate after a grace
// period instead of ticking forever.
type buildFunc func(ctx context.Context) (payload []byte, terminal bool, err error)

// snapshotProducer periodically composes and publishes one channel's
// snapshot. Delivery to local subscribers always goes through this
// process's own Redis subscription to the same channel, never by fanning
// out a locally-built payload directly: that way a subscriber on this
// server receives snapshots whether they were produced here or by another
// server instance, per the bus's any-server delivery guarantee. It is
// reference-counted: both the ticking and the subscription run only while
// at least one local subscriber holds the producer open.
type snapshotProducer struct {
	client   *redis.Client
	channel  string
	cacheKey string
	interval time.Duration
	build    buildFunc
	// onIdle is called once the last subscriber leaves, so the owning Bus
	// can drop this producer from its registry.
	onIdle func()

	mu          sync.Mutex
	subscribers map[int]chan []byte
	nextID      int
	cancel      context.CancelFunc
	tickNow     chan struct{}
	pubsub      *redis.PubSub
}

func newSnapshotProducer(client *redis.Client, channel, cacheKey string, interval time.Duration, build buildFunc) *snapshotProducer {
	return &snapshotProducer{
		client:      client,
		channel:     channel,
		cacheKey:    cacheKey,
		interval:    interval,
		build:       build,
		subscribers: make(map[int]chan []byte),
	}
}

// subscribe registers a new local subscriber, starting the producer if this
// is the first one, and seeds the returned channel with the cached snapshot
// so the caller does not wait for the next tick or the next publish from
// whichever server instance is currently producing.
func (p *snapshotProducer) subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	p.mu.Lock()
	if len(p.subscribers) == 0 {
		p.start()
	}
	id := p.nextID
	p.nextID++
	ch := make(chan []byte, subscriberBuffer)
	p.subscribers[id] = ch
	p.mu.Unlock()

	if seed, err := p.client.Get(ctx, p.cacheKey).Bytes(); err == nil {
		select {
		case ch <- seed:
		default:
		}
	}

	unsubscribe := func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		close(ch)
		empty := len(p.subscribers) == 0
		p.mu.Unlock()

		if empty {
			p.stop()
		}
	}

	return ch, unsubscribe, nil
}

// requestTick speeds up a producer that a subscriber already keeps running;
// it never starts one on its own, since a nudge with no subscriber anywhere
// to receive it would have nothing to accomplish.
func (p *snapshotProducer) requestTick() {
	p.mu.Lock()
	tick := p.tickNow
	p.mu.Unlock()

	if tick != nil {
		select {
		case tick <- struct{}{}:
		default:
		}
	}
}

func (p *snapshotProducer) start() {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := p.client.Subscribe(ctx, p.channel)

	p.cancel = cancel
	p.pubsub = pubsub
	p.tickNow = make(chan struct{}, 1)

	go p.receiveLoop(pubsub)
	go p.tickLoop(ctx, p.tickNow)
}

func (p *snapshotProducer) stop() {
	p.mu.Lock()
	cancel := p.cancel
	pubsub := p.pubsub
	p.cancel = nil
	p.pubsub = nil
	p.tickNow = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pubsub != nil {
		pubsub.Close()
	}
	if p.onIdle != nil {
		p.onIdle()
	}
}

// receiveLoop relays every message this server's Redis subscription sees on
// the channel to every locally-registered subscriber, regardless of which
// server instance actually published it. It exits once Close() (called from
// stop) ends the underlying subscription.
func (p *snapshotProducer) receiveLoop(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		p.fanOut([]byte(msg.Payload))
	}
}

func (p *snapshotProducer) fanOut(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

func (p *snapshotProducer) tickLoop(ctx context.Context, tickNow chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		terminal := p.tick(ctx)
		if terminal {
			p.terminate(ctx)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-tickNow:
		}
	}
}

func (p *snapshotProducer) tick(ctx context.Context) bool {
	payload, terminal, err := p.build(ctx)
	if err != nil {
		log.WithFields(log.Fields{"channel": p.channel, "error": err}).Warn("notify: failed to build snapshot")
		return false
	}

	p.publish(ctx, payload)
	return terminal
}

func (p *snapshotProducer) publish(ctx context.Context, payload []byte) {
	if err := p.client.Set(ctx, p.cacheKey, payload, cacheTTL).Err(); err != nil {
		log.WithFields(log.Fields{"key": p.cacheKey, "error": err}).Warn("notify: failed to seed snapshot cache")
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.WithFields(log.Fields{"channel": p.channel, "error": err}).Warn("notify: failed to publish snapshot")
	}
}

// terminate lets local subscribers receive the final snapshot, relayed back
// through this server's own subscription, before the producer tears itself
// down after the grace period.
func (p *snapshotProducer) terminate(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(terminalGracePeriod):
	}
	p.stop()
}
