package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/baechuer/storefront-bff/internal/downstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountClient struct {
	mock.Mock
}

func (m *mockAccountClient) ResetPassword(ctx context.Context, token string, payload domain.ResetPayload) (*domain.ResetResult, error) {
	args := m.Called(ctx, token, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResetResult), args.Error(1)
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func waitIdle(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestReduce(t *testing.T) {
	s := State{}

	s = Reduce(s, Action{Type: ResetPasswordRequest})
	assert.Equal(t, State{Loading: true}, s)

	s = Reduce(s, Action{Type: ResetPasswordFail, Error: "Token expired"})
	assert.Equal(t, State{Error: "Token expired"}, s)

	s = Reduce(s, Action{Type: ClearErrors})
	assert.Equal(t, State{}, s)

	s = Reduce(s, Action{Type: ResetPasswordRequest})
	s = Reduce(s, Action{Type: ResetPasswordSuccess, Success: true})
	assert.Equal(t, State{Success: true}, s)

	assert.Equal(t, s, Reduce(s, Action{Type: "UNKNOWN"}))
}

func TestResetPassword_Success(t *testing.T) {
	client := new(mockAccountClient)
	payload := domain.ResetPayload{Password: "longenough1", ConfirmPassword: "longenough1"}
	client.On("ResetPassword", mock.Anything, "abc123", payload).
		Return(&domain.ResetResult{Success: true, UserID: "u-1"}, nil).Once()

	s := New(client)
	rec := &recorder{}
	s.Subscribe(rec.record)

	s.ResetPassword(context.Background(), "abc123", payload)
	waitIdle(t, s)

	assert.Equal(t, []State{{Loading: true}, {Success: true}}, rec.all())
	assert.Equal(t, State{Success: true}, s.State())
	client.AssertExpectations(t)
}

func TestResetPassword_FailureMessages(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"account message", &downstream.StatusError{StatusCode: 400, Code: "invalid_request", Message: "Token expired"}, "Token expired"},
		{"timeout", downstream.ErrTimeout, msgTimeout},
		{"unavailable", downstream.ErrUnavailable, msgUnavailable},
		{"anything else", errors.New("boom"), msgUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := new(mockAccountClient)
			client.On("ResetPassword", mock.Anything, "abc123", mock.Anything).Return(nil, tc.err)

			s := New(client)
			s.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})
			waitIdle(t, s)

			assert.Equal(t, State{Error: tc.want}, s.State())
		})
	}
}

func TestResetPassword_DetachedFromCallerCancellation(t *testing.T) {
	client := new(mockAccountClient)
	client.On("ResetPassword", mock.Anything, "abc123", mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			assert.NoError(t, ctx.Err())
		}).
		Return(&domain.ResetResult{Success: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(client)
	s.ResetPassword(ctx, "abc123", domain.ResetPayload{})
	waitIdle(t, s)

	assert.True(t, s.State().Success)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := New(new(mockAccountClient))
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.record)

	s.Dispatch(Action{Type: ResetPasswordFail, Error: "x"})
	unsubscribe()
	unsubscribe()
	s.ClearErrors()

	assert.Equal(t, []State{{Error: "x"}}, rec.all())
	assert.Equal(t, State{}, s.State())
}

func TestDispatch_NoChangeNoNotify(t *testing.T) {
	s := New(new(mockAccountClient))
	rec := &recorder{}
	s.Subscribe(rec.record)

	s.ClearErrors()
	assert.Empty(t, rec.all())
}

func TestDispatch_ReentrantFromSubscriber(t *testing.T) {
	s := New(new(mockAccountClient))
	rec := &recorder{}
	s.Subscribe(func(st State) {
		rec.record(st)
		if st.Error != "" {
			s.ClearErrors()
		}
	})

	s.Dispatch(Action{Type: ResetPasswordFail, Error: "Token expired"})

	assert.Equal(t, []State{{Error: "Token expired"}, {}}, rec.all())
}

func TestWait_RespectsContext(t *testing.T) {
	release := make(chan struct{})
	client := new(mockAccountClient)
	client.On("ResetPassword", mock.Anything, "abc123", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&domain.ResetResult{Success: true}, nil)

	s := New(client)
	s.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})
	assert.True(t, s.State().Loading)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	close(release)
	waitIdle(t, s)
	assert.False(t, s.State().Loading)
}
