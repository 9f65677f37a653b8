package services

import (
	"context"
	"time"

	"dixit-toolbox/internal/deck"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RetryPolicy is a bounded retry with exponentially growing delays.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// exponential doubles BaseDelay on every retry, without jitter, up to MaxDelay.
func (p RetryPolicy) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = 24 * time.Hour
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs fn until it succeeds, returns a permanent error, the attempts run out or ctx ends.
func (p RetryPolicy) Do(ctx context.Context, log logrus.FieldLogger, op string, fn func(ctx context.Context) error) error {
	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.exponential(), uint64(retries)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return fn(ctx)
	}, b, func(err error, wait time.Duration) {
		log.WithFields(logrus.Fields{"op": op, "attempt": attempt}).Warnf("Call failed: %v. Retrying in %s.", err, wait)
	})
}

// WithRetry wraps every service of the suite in the retry policy.
func WithRetry(s Suite, policy RetryPolicy, log logrus.FieldLogger) Suite {
	out := s
	if s.Captioner != nil {
		out.Captioner = &retryCaptioner{inner: s.Captioner, policy: policy, log: log}
	}
	if s.Scorer != nil {
		out.Scorer = &retryScorer{inner: s.Scorer, policy: policy, log: log}
	}
	if s.Obfuscator != nil {
		out.Obfuscator = &retryObfuscator{inner: s.Obfuscator, policy: policy, log: log}
	}
	return out
}

type retryCaptioner struct {
	inner  Captioner
	policy RetryPolicy
	log    logrus.FieldLogger
}

func (r *retryCaptioner) Caption(ctx context.Context, card deck.Card) (string, error) {
	var caption string
	err := r.policy.Do(ctx, r.log, "caption", func(ctx context.Context) error {
		var err error
		caption, err = r.inner.Caption(ctx, card)
		return err
	})
	return caption, err
}

type retryScorer struct {
	inner  Scorer
	policy RetryPolicy
	log    logrus.FieldLogger
}

func (r *retryScorer) Score(ctx context.Context, card deck.Card, text string) (float64, error) {
	var score float64
	err := r.policy.Do(ctx, r.log, "score", func(ctx context.Context) error {
		var err error
		score, err = r.inner.Score(ctx, card, text)
		return err
	})
	return score, err
}

type retryObfuscator struct {
	inner  Obfuscator
	policy RetryPolicy
	log    logrus.FieldLogger
}

func (r *retryObfuscator) Obfuscate(ctx context.Context, text string, temperature float64) (string, error) {
	var clue string
	err := r.policy.Do(ctx, r.log, "obfuscate", func(ctx context.Context) error {
		var err error
		clue, err = r.inner.Obfuscate(ctx, text, temperature)
		return err
	})
	return clue, err
}
