package roundprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// extendScript atomically checks and increments a round's extension
// counter, refusing once it reaches the configured maximum. The counter
// lives on the fast store, keyed by (auctionId, roundIndex), rather than in
// process memory: an in-process counter would not survive a restart or be
// visible to a sibling server instance handling the same auction.
var extendScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1])) or 0
if count >= tonumber(ARGV[1]) then
	return -1
end
count = count + 1
redis.call("SET", KEYS[1], count, "EX", ARGV[2])
return count
`)

type antiSnipeCounter struct {
	client *redis.Client
}

func newAntiSnipeCounter(client *redis.Client) *antiSnipeCounter {
	return &antiSnipeCounter{client: client}
}

// tryExtend increments the round's extension counter if budget remains. ok
// is false once maxExtensions has already been reached.
func (a *antiSnipeCounter) tryExtend(ctx context.Context, auctionID string, roundIndex, maxExtensions int, ttl time.Duration) (ok bool, err error) {
	key := fmt.Sprintf("antisnipe:%s:%d", auctionID, roundIndex)
	result, err := extendScript.Run(ctx, a.client, []string{key}, maxExtensions, int(ttl.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("roundprocessor: failed to increment anti-snipe counter: %w", err)
	}
	return result >= 0, nil
}
