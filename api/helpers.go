package api

import (
	"errors"
	"time"
)

// nowFunc is indirected so tests can freeze time around a round boundary.
var nowFunc = time.Now

// errDomainAuctionNotActive is raised from inside a locked body to signal a
// domain rejection (as opposed to an infrastructure error) without coupling
// the locker's generic error return to an HTTP status directly.
var errDomainAuctionNotActive = errors.New("api: auction not active")
