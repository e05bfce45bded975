// Package store holds the outcome flags of a password reset submission and
// notifies subscribers whenever they change.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/baechuer/storefront-bff/internal/downstream"
	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/internal/metrics"
	"github.com/baechuer/storefront-bff/internal/tracing"
	"go.opentelemetry.io/otel/codes"
)

type State = domain.OutcomeFlags

type ActionType string

const (
	ResetPasswordRequest ActionType = "RESET_PASSWORD_REQUEST"
	ResetPasswordSuccess ActionType = "RESET_PASSWORD_SUCCESS"
	ResetPasswordFail    ActionType = "RESET_PASSWORD_FAIL"
	ClearErrors          ActionType = "CLEAR_ERRORS"
)

type Action struct {
	Type    ActionType
	Success bool
	Error   string
}

const (
	msgUnavailable = "Service unavailable, please try again"
	msgTimeout     = "Request timed out, please try again"
)

// Reduce returns the state after applying a.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ResetPasswordRequest:
		s.Loading = true
	case ResetPasswordSuccess:
		s.Loading = false
		s.Success = a.Success
	case ResetPasswordFail:
		s.Loading = false
		s.Error = a.Error
	case ClearErrors:
		s.Error = ""
	}
	return s
}

// AccountClient is the slice of the account API the store needs.
type AccountClient interface {
	ResetPassword(ctx context.Context, token string, payload domain.ResetPayload) (*domain.ResetResult, error)
}

type Store struct {
	client AccountClient

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextID  int
	pending int
	idle    chan struct{} // closed while nothing is in flight
}

func New(client AccountClient) *Store {
	idle := make(chan struct{})
	close(idle)
	return &Store{
		client: client,
		subs:   make(map[int]func(State)),
		idle:   idle,
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state change. fn runs on the goroutine
// that dispatched the change, without the store lock held.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	next := Reduce(s.state, a)
	changed := next != s.state
	s.state = next
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range fns {
		fn(next)
	}
}

func (s *Store) ClearErrors() {
	s.Dispatch(Action{Type: ClearErrors})
}

// ResetPassword marks the submission as loading and returns. The account API
// call runs in the background; its result arrives as a state change.
func (s *Store) ResetPassword(ctx context.Context, token string, payload domain.ResetPayload) {
	s.Dispatch(Action{Type: ResetPasswordRequest})

	// The page request that triggered the submission ends long before the
	// account API answers.
	ctx = context.WithoutCancel(ctx)

	s.begin()
	go func() {
		defer s.end()

		ctx, span := tracing.StartSpan(ctx, "password_reset.dispatch")
		defer span.End()

		res, err := s.client.ResetPassword(ctx, token, payload)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reset failed")
			msg := failureMessage(err)
			logger.Ctx(ctx).Warn().Err(err).Msg("password_reset_failed")
			metrics.ResetOutcomes.WithLabelValues("error").Inc()
			s.Dispatch(Action{Type: ResetPasswordFail, Error: msg})
			return
		}

		logger.Ctx(ctx).Info().Str("user_id", res.UserID).Msg("password_reset_succeeded")
		metrics.ResetOutcomes.WithLabelValues("success").Inc()
		s.Dispatch(Action{Type: ResetPasswordSuccess, Success: res.Success})
	}()
}

// Wait blocks until background submissions finish or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

func failureMessage(err error) string {
	var se *downstream.StatusError
	switch {
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case errors.Is(err, downstream.ErrTimeout):
		return msgTimeout
	default:
		return msgUnavailable
	}
}
