// Package notify implements the real-time fan-out layer: periodic snapshot
// producers publish onto Redis pub/sub channels, and any server with local
// subscribers relays those channels into per-subscriber Go channels. A
// server's producer for a given auction only runs while it has at least one
// local subscriber; redundant producers across servers are harmless since
// every snapshot is self-contained and idempotent to redeliver.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"auctionhouse/domain/interfaces"

	"github.com/redis/go-redis/v9"
)

const (
	allAuctionsChannel  = "auctions:updates"
	allAuctionsInterval = 1000 * time.Millisecond
	allAuctionsCacheKey = "snapshot:auctions"

	perAuctionInterval  = 500 * time.Millisecond
	cacheTTL            = 5 * time.Second
	terminalGracePeriod = 5 * time.Second

	subscriberBuffer = 8
)

func perAuctionChannel(auctionID string) string {
	return fmt.Sprintf("auction:%s:updates", auctionID)
}

func perAuctionCacheKey(auctionID string) string {
	return fmt.Sprintf("snapshot:auction:%s", auctionID)
}

// Bus implements interfaces.NotificationBus against Redis pub/sub, plus an
// additional SubscribeAll surface the API layer uses for the all-auctions
// stream (outside the narrower interface contract the round processor needs).
type Bus struct {
	client     *redis.Client
	uowFactory interfaces.UnitOfWorkFactory
	bidEngine  interfaces.BidEngine

	mu               sync.Mutex
	auctionProducers map[string]*snapshotProducer
	allAuctionsBus   *snapshotProducer
}

// New creates a new notification Bus.
func New(client *redis.Client, uowFactory interfaces.UnitOfWorkFactory, bidEngine interfaces.BidEngine) *Bus {
	return &Bus{
		client:           client,
		uowFactory:       uowFactory,
		bidEngine:        bidEngine,
		auctionProducers: make(map[string]*snapshotProducer),
	}
}

// Subscribe starts (or joins) this server's producer for one auction and
// returns a channel of snapshot payloads plus an unsubscribe func. The
// first subscriber on this server starts the producer; the last unsubscribe
// stops it.
func (b *Bus) Subscribe(ctx context.Context, auctionID string) (<-chan []byte, func(), error) {
	producer := b.getOrCreateAuctionProducer(auctionID)
	return producer.subscribe(ctx)
}

// SubscribeAll starts (or joins) this server's all-auctions producer.
func (b *Bus) SubscribeAll(ctx context.Context) (<-chan []byte, func(), error) {
	producer := b.getOrCreateAllAuctionsProducer()
	return producer.subscribe(ctx)
}

// Nudge asks an already-running per-auction producer to publish immediately
// rather than waiting for its next tick, used right after a bid is admitted.
// It is a no-op if no local subscriber currently keeps the producer alive.
func (b *Bus) Nudge(auctionID string) {
	b.mu.Lock()
	producer := b.auctionProducers[auctionID]
	b.mu.Unlock()

	if producer != nil {
		producer.requestTick()
	}
}

func (b *Bus) getOrCreateAuctionProducer(auctionID string) *snapshotProducer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.auctionProducers[auctionID]; ok {
		return p
	}

	p := newSnapshotProducer(b.client, perAuctionChannel(auctionID), perAuctionCacheKey(auctionID), perAuctionInterval, func(ctx context.Context) ([]byte, bool, error) {
		return b.buildAuctionSnapshot(ctx, auctionID)
	})
	p.onIdle = func() {
		b.mu.Lock()
		delete(b.auctionProducers, auctionID)
		b.mu.Unlock()
	}
	b.auctionProducers[auctionID] = p
	return p
}

func (b *Bus) getOrCreateAllAuctionsProducer() *snapshotProducer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allAuctionsBus != nil {
		return b.allAuctionsBus
	}

	p := newSnapshotProducer(b.client, allAuctionsChannel, allAuctionsCacheKey, allAuctionsInterval, b.buildAllAuctionsSnapshot)
	p.onIdle = func() {
		b.mu.Lock()
		b.allAuctionsBus = nil
		b.mu.Unlock()
	}
	b.allAuctionsBus = p
	return p
}

func (b *Bus) buildAllAuctionsSnapshot(ctx context.Context) ([]byte, bool, error) {
	uow := b.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("notify: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auctions, err := uow.AuctionRepository().GetActive(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("notify: failed to list active auctions: %w", err)
	}

	summaries := make([]AuctionSummary, 0, len(auctions))
	for _, a := range auctions {
		summary := AuctionSummary{AuctionID: a.ID, State: string(a.State), CurrentRound: a.CurrentRound}
		if a.RoundEndsAt != nil {
			unix := a.RoundEndsAt.Unix()
			summary.RoundEndsAt = &unix
		}
		if top, err := b.bidEngine.TopBids(ctx, a.ID, 1); err == nil && len(top) > 0 {
			bids := toBidSummaries(top)
			summary.TopBid = &bids[0]
		}
		summaries = append(summaries, summary)
	}

	payload, err := json.Marshal(AllAuctionsSnapshot{Auctions: summaries, GeneratedAt: time.Now().Unix()})
	if err != nil {
		return nil, false, fmt.Errorf("notify: failed to encode all-auctions snapshot: %w", err)
	}
	return payload, false, nil
}

func (b *Bus) buildAuctionSnapshot(ctx context.Context, auctionID string) ([]byte, bool, error) {
	uow := b.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("notify: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auction, err := uow.AuctionRepository().GetByID(ctx, auctionID)
	if err != nil {
		return nil, false, fmt.Errorf("notify: failed to load auction %s: %w", auctionID, err)
	}
	if auction == nil {
		return nil, false, fmt.Errorf("notify: auction %s not found", auctionID)
	}

	snapshot := AuctionSnapshot{AuctionID: auction.ID, State: string(auction.State), CurrentRound: auction.CurrentRound, GeneratedAt: time.Now().Unix()}
	if auction.RoundEndsAt != nil {
		unix := auction.RoundEndsAt.Unix()
		snapshot.RoundEndsAt = &unix
	}

	if auction.IsActive() {
		ranked, err := b.bidEngine.TopBids(ctx, auctionID, 50)
		if err != nil {
			return nil, false, fmt.Errorf("notify: failed to rank bids for %s: %w", auctionID, err)
		}
		snapshot.Bids = toBidSummaries(ranked)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, false, fmt.Errorf("notify: failed to encode snapshot for %s: %w", auctionID, err)
	}

	return payload, auction.IsTerminal(), nil
}
