package controllers

import (
	"context"
	"errors"
	"net/http"
	"streamwatch/internal/statistic"
	"streamwatch/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pollFunc func(ctx context.Context) error

func (f pollFunc) PollNow(ctx context.Context) error { return f(ctx) }

func TestPoll_Success(t *testing.T) {
	cache := testutil.NewMockCache()
	cache.Set("dashboard", []byte(`{}`))
	calls := 0
	pc := NewPollController(&testutil.MockLogger{}, pollFunc(func(context.Context) error {
		calls++
		return nil
	}), cache)

	rr := do(pc.Poll, http.MethodPost, "/poll", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 1, calls)
	_, ok := cache.Get("dashboard")
	assert.False(t, ok)
}

func TestPoll_InProgress(t *testing.T) {
	cache := testutil.NewMockCache()
	cache.Set("dashboard", []byte(`{}`))
	pc := NewPollController(&testutil.MockLogger{}, pollFunc(func(context.Context) error {
		return statistic.ErrPollInProgress
	}), cache)

	rr := do(pc.Poll, http.MethodPost, "/poll", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "already in progress")
	_, ok := cache.Get("dashboard")
	assert.True(t, ok)
}

func TestPoll_FailureIsHidden(t *testing.T) {
	logger := &testutil.MockLogger{}
	pc := NewPollController(logger, pollFunc(func(context.Context) error {
		return errors.New("twitch token rejected")
	}), testutil.NewMockCache())

	rr := do(pc.Poll, http.MethodPost, "/poll", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "twitch")
	assert.Equal(t, 1, logger.Count("error"))
}
