package controllers

import (
	"context"
	"net/http"
	"streamwatch/internal/providers"
)

// Poller runs one producer round on demand.
type Poller interface {
	PollNow(ctx context.Context) error
}

type PollController struct {
	logger providers.Logger
	poller Poller
	cache  providers.CacheProviderInterface
}

// Poll triggers a producer round and waits for it. A round already in
// progress answers 409.
func (pc *PollController) Poll(w http.ResponseWriter, r *http.Request) {
	if err := pc.poller.PollNow(r.Context()); err != nil {
		writeError(pc.logger, w, r, err)
		return
	}
	pc.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func NewPollController(logger providers.Logger, poller Poller, cache providers.CacheProviderInterface) *PollController {
	return &PollController{
		logger: logger,
		poller: poller,
		cache:  cache,
	}
}
