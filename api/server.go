// Package api implements the Bid API Coordinator: the HTTP+JSON boundary
// that validates requests, enforces idempotency, and translates every
// subsystem's typed outcome into the external interface's stable error
// codes. It never makes a domain decision itself — it only calls into
// bidengine, ledger, roundprocessor, and notify and maps what comes back.
package api

import (
	"time"

	"auctionhouse/config"
	"auctionhouse/domain/interfaces"
	"auctionhouse/infrastructure/idempotency"
	"auctionhouse/infrastructure/ratelimit"
	"auctionhouse/infrastructure/redismutex"
	"auctionhouse/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server wires the HTTP boundary to the core subsystems.
type Server struct {
	uowFactory interfaces.UnitOfWorkFactory
	bidEngine  interfaces.BidEngine
	ledger     interfaces.Ledger
	scheduler  interfaces.Scheduler
	processor  interfaces.RoundProcessor
	locker     *redismutex.Locker
	notifier   *notify.Bus
	idem       *idempotency.Store
	limiter    *ratelimit.Limiter
	cfg        *config.Config
}

// Deps carries every collaborator Server needs, assembled by the caller
// (cmd/run.go) once at process start.
type Deps struct {
	UowFactory interfaces.UnitOfWorkFactory
	BidEngine  interfaces.BidEngine
	Ledger     interfaces.Ledger
	Scheduler  interfaces.Scheduler
	Processor  interfaces.RoundProcessor
	Locker     *redismutex.Locker
	Notifier   *notify.Bus
	Idem       *idempotency.Store
	Limiter    *ratelimit.Limiter
	Config     *config.Config
}

// NewServer creates a new Server.
func NewServer(d Deps) *Server {
	return &Server{
		uowFactory: d.UowFactory,
		bidEngine:  d.BidEngine,
		ledger:     d.Ledger,
		scheduler:  d.Scheduler,
		processor:  d.Processor,
		locker:     d.Locker,
		notifier:   d.Notifier,
		idem:       d.Idem,
		limiter:    d.Limiter,
		cfg:        d.Config,
	}
}

// BuildApp assembles the fiber application and registers every route.
func (s *Server) BuildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	bidLimit := ratelimit.Middleware(s.limiter, "bid", s.cfg.RateLimitBidPerSecond, time.Second, callerIDKey)
	createLimit := ratelimit.Middleware(s.limiter, "create", s.cfg.RateLimitCreateAuctionPerMinute, time.Minute, callerIDKey)
	readLimit := ratelimit.Middleware(s.limiter, "read", s.cfg.RateLimitReadPerSecond, time.Second, callerIDKey)

	app.Post("/auctions/:id/bids", bidLimit, s.placeBid)
	app.Post("/auctions", createLimit, s.createAuction)
	app.Get("/auctions", readLimit, s.getAuctions)
	app.Get("/auctions/:id", readLimit, s.getAuction)
	app.Get("/auctions/:id/bets", readLimit, s.getAuctionBets)
	app.Get("/auctions/:id/my-bet", readLimit, s.getMyBet)
	app.Get("/users/me/balance", readLimit, s.getUserBalance)
	app.Get("/auctions/stream", s.streamAuctions)
	app.Get("/auctions/:id/stream", s.streamAuction)

	if s.cfg.EnableDebugMint {
		app.Post("/debug/mint", s.debugMint)
	}

	return app
}

func callerIDKey(c *fiber.Ctx) string {
	return c.Get("X-User-Id")
}
