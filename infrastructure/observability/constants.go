package observability

// Metric names, kept as constants so instrument creation and recording call
// sites can't drift apart.
const (
	BidsPlacedTotal            = "auctionhouse.bids.placed.total"
	AuctionsActive             = "auctionhouse.auctions.active"
	RoundsSettledTotal         = "auctionhouse.rounds.settled.total"
	RoundExtensionsTotal       = "auctionhouse.rounds.extensions.total"
	NATSMessagesReceivedTotal  = "auctionhouse.nats.messages.received.total"
	NATSMessagesPublishedTotal = "auctionhouse.nats.messages.published.total"
	BalanceTransactionsTotal   = "auctionhouse.balance.transactions.total"
	DatabaseQueriesTotal       = "auctionhouse.database.queries.total"
	DatabaseQueryDuration      = "auctionhouse.database.query.duration"
	RedisCommandDuration       = "auctionhouse.redis.command.duration"
)

// Attribute label keys.
const (
	LabelType       = "type"
	LabelEventType  = "event_type"
	LabelRepository = "repository"
	LabelMethod     = "method"
	LabelCommand    = "command"
)
