// Package ratelimit provides client-side request throttling backed by
// golang.org/x/time/rate token buckets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles requests with a global token bucket plus optional named
// buckets so endpoint families (e.g. signed vs public) can be limited
// independently. Named buckets are created on demand with the global limit.
type Limiter struct {
	global   *rate.Limiter
	buckets  sync.Map
	mu       sync.Mutex
	requests int
	period   time.Duration
}

// New creates a Limiter allowing the specified number of requests per period.
func New(requests int, period time.Duration) *Limiter {
	return &Limiter{
		global:   rate.NewLimiter(perSecond(requests, period), requests),
		requests: requests,
		period:   period,
	}
}

// Wait blocks until the global limiter allows a request or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.global.Wait(ctx)
}

// Allow reports whether the global limiter permits a request immediately.
func (l *Limiter) Allow() bool {
	return l.global.Allow()
}

// WaitBucket blocks until the named bucket allows a request or the context is
// cancelled.
func (l *Limiter) WaitBucket(ctx context.Context, bucket string) error {
	return l.getBucket(bucket).Wait(ctx)
}

// AllowBucket reports whether the named bucket permits a request immediately.
func (l *Limiter) AllowBucket(bucket string) bool {
	return l.getBucket(bucket).Allow()
}

// SetLimit updates the global limit. Existing named buckets keep their
// current limits.
func (l *Limiter) SetLimit(requests int, period time.Duration) {
	l.mu.Lock()
	l.requests = requests
	l.period = period
	l.mu.Unlock()
	l.global.SetLimit(perSecond(requests, period))
}

// SetBucketLimit updates the limit for a named bucket, creating it if needed.
func (l *Limiter) SetBucketLimit(bucket string, requests int, period time.Duration) {
	l.getBucket(bucket).SetLimit(perSecond(requests, period))
}

func (l *Limiter) getBucket(bucket string) *rate.Limiter {
	if v, ok := l.buckets.Load(bucket); ok {
		return v.(*rate.Limiter)
	}

	l.mu.Lock()
	requests, period := l.requests, l.period
	l.mu.Unlock()

	limiter := rate.NewLimiter(perSecond(requests, period), requests)
	actual, _ := l.buckets.LoadOrStore(bucket, limiter)
	return actual.(*rate.Limiter)
}

func perSecond(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}
