package api

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// streamAuctions serves the all-auctions snapshot stream: one server-sent
// event ("data: <json>") per snapshot, published roughly every second for as
// long as the client stays connected.
func (s *Server) streamAuctions(c *fiber.Ctx) error {
	return s.stream(c, func(ctx context.Context) (<-chan []byte, func(), error) {
		return s.notifier.SubscribeAll(ctx)
	})
}

// streamAuction serves one auction's snapshot stream, roughly every half
// second, with a final snapshot once the auction reaches a terminal state.
func (s *Server) streamAuction(c *fiber.Ctx) error {
	auctionID := c.Params("id")
	return s.stream(c, func(ctx context.Context) (<-chan []byte, func(), error) {
		return s.notifier.Subscribe(ctx, auctionID)
	})
}

func (s *Server) stream(c *fiber.Ctx, subscribe func(ctx context.Context) (<-chan []byte, func(), error)) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(context.Background())
	ch, unsubscribe, err := subscribe(ctx)
	if err != nil {
		cancel()
		return sendError(c, errInternal)
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()

		for payload := range ch {
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}
