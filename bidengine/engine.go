// Package bidengine runs the atomic admission script against the fast
// store and decodes its result into the interfaces.BidEngine contract. The
// script itself is the single source of truth for the admission decision;
// this package never makes an admission decision in Go.
package bidengine

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"auctionhouse/domain/interfaces"

	"github.com/redis/go-redis/v9"
)

//go:embed admit.lua
var admitScriptSource string

var admitScript = redis.NewScript(admitScriptSource)

const idempotencyTTL = 24 * time.Hour

// Engine implements interfaces.BidEngine against Redis.
type Engine struct {
	client *redis.Client
}

// New creates a new bid Engine bound to a Redis client.
func New(client *redis.Client) *Engine {
	return &Engine{client: client}
}

// scriptResult mirrors the JSON shape admit.lua encodes via cjson.
type scriptResult struct {
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	PreviousBet int64  `json:"previousBet"`
	Diff        int64  `json:"diff"`
	FirstBidAt  int64  `json:"firstBidAt"`
}

// PlaceBid runs the atomic admission script, then resolves the bidder's rank
// from the auction's ranked set. Rank is read outside the script because it
// requires no further atomicity guarantee once the score itself is fixed.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, userID string, amount, availableBalance int64, idempotencyKey string) (*interfaces.BidOutcome, error) {
	userKey := fmt.Sprintf("user:%s:bets", userID)
	auctionKey := fmt.Sprintf("auction:%s:bets", auctionID)
	idemKey := fmt.Sprintf("idem:%s", idempotencyKey)

	// idem:{k} already holding a value tells us this call is a replay
	// before the script even runs, so the outcome can be flagged
	// idempotent=true without the script needing to say so itself.
	existed, err := e.client.Exists(ctx, idemKey).Result()
	if err != nil {
		return nil, fmt.Errorf("bidengine: failed to check idempotency key: %w", err)
	}

	raw, err := admitScript.Run(ctx, e.client,
		[]string{userKey, auctionKey, idemKey},
		auctionID, userID, amount, availableBalance, time.Now().Unix(), int(idempotencyTTL.Seconds()),
	).Text()
	if err != nil {
		return nil, fmt.Errorf("bidengine: admission script failed: %w", err)
	}

	var res scriptResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("bidengine: failed to decode admission result: %w", err)
	}

	outcome := &interfaces.BidOutcome{
		Status:         interfaces.BidOutcomeStatus(res.Status),
		Idempotent:     existed == 1,
		Amount:         res.Amount,
		PreviousAmount: res.PreviousBet,
		Diff:           res.Diff,
		FirstBidAt:     res.FirstBidAt,
	}

	if outcome.Status == interfaces.BidOutcomeOK || outcome.Status == interfaces.BidOutcomeSame {
		rank, err := e.client.ZRevRank(ctx, auctionKey, userID).Result()
		if err == nil {
			outcome.Rank = int(rank) + 1
		}
	}

	return outcome, nil
}

// TopBids returns the top n ranked bids for an auction, highest score first.
func (e *Engine) TopBids(ctx context.Context, auctionID string, n int) ([]*interfaces.RankedBid, error) {
	auctionKey := fmt.Sprintf("auction:%s:bets", auctionID)

	members, err := e.client.ZRevRangeWithScores(ctx, auctionKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("bidengine: failed to read top bids for %s: %w", auctionID, err)
	}

	bids := make([]*interfaces.RankedBid, 0, len(members))
	for i, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		amount, firstBidAt := decomposeScore(int64(m.Score))
		bids = append(bids, &interfaces.RankedBid{
			UserID:     userID,
			Amount:     amount,
			FirstBidAt: firstBidAt,
			Rank:       i + 1,
		})
	}
	return bids, nil
}

// UserBid returns a single user's standing bid and rank in an auction, or
// nil if the user has not bid in it.
func (e *Engine) UserBid(ctx context.Context, auctionID, userID string) (*interfaces.RankedBid, error) {
	auctionKey := fmt.Sprintf("auction:%s:bets", auctionID)

	score, err := e.client.ZScore(ctx, auctionKey, userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bidengine: failed to read bid for %s/%s: %w", auctionID, userID, err)
	}

	rank, err := e.client.ZRevRank(ctx, auctionKey, userID).Result()
	if err != nil {
		return nil, fmt.Errorf("bidengine: failed to read rank for %s/%s: %w", auctionID, userID, err)
	}

	amount, firstBidAt := decomposeScore(int64(score))
	return &interfaces.RankedBid{
		UserID:     userID,
		Amount:     amount,
		FirstBidAt: firstBidAt,
		Rank:       int(rank) + 1,
	}, nil
}

// ClearAuction removes every fast-cache trace of an auction's bids, called
// once settlement finishes so a finished auction leaves no cache residue.
func (e *Engine) ClearAuction(ctx context.Context, auctionID string, userIDs []string) error {
	auctionKey := fmt.Sprintf("auction:%s:bets", auctionID)

	pipe := e.client.Pipeline()
	pipe.Del(ctx, auctionKey)
	for _, userID := range userIDs {
		pipe.HDel(ctx, fmt.Sprintf("user:%s:bets", userID), auctionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bidengine: failed to clear auction %s cache: %w", auctionID, err)
	}
	return nil
}

const maxTimestamp = 9999999999
const amountScale = 10_000_000_000

func decomposeScore(score int64) (amount, firstBidAt int64) {
	amount = score / amountScale
	firstBidAt = maxTimestamp - (score % amountScale)
	return amount, firstBidAt
}
