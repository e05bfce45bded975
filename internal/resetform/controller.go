// Package resetform implements the Reset Password form: two password fields,
// ordered client-side validation, dispatch of the reset request and the
// reaction to the outcome reported by the reset channel.
package resetform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"unicode/utf16"

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/baechuer/storefront-bff/internal/metrics"
	"github.com/baechuer/storefront-bff/internal/navigation"
	"github.com/baechuer/storefront-bff/internal/notify"
	"github.com/go-playground/validator/v10"
)

type Field string

const (
	FieldNewPassword     Field = "newPassword"
	FieldConfirmPassword Field = "confirmPassword"
)

const (
	DefaultMinLength = 8

	MsgPasswordsMismatch = "Passwords don't match"
	MsgPasswordUpdated   = "Password Updated Successfully"
)

var (
	ErrUnknownField   = errors.New("unknown form field")
	ErrSubmitInFlight = errors.New("a reset request is already in flight")
)

// ValidationError is a submission rejected before anything was dispatched.
type ValidationError struct {
	Field   Field
	Level   notify.Level
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func tooShortMessage(min int) string {
	return fmt.Sprintf("Password length must be at least %d characters", min)
}

// Channel is the reset action/state channel the form talks to.
type Channel interface {
	ResetPassword(ctx context.Context, token string, payload domain.ResetPayload)
	Subscribe(fn func(domain.OutcomeFlags)) (unsubscribe func())
	ClearErrors()
	State() domain.OutcomeFlags
}

type Option func(*Controller)

// WithoutValidation submits unconditionally, skipping the length and match checks.
func WithoutValidation() Option {
	return func(c *Controller) { c.validate = false }
}

func WithMinLength(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minLength = n
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("min_utf16", minUTF16)
	return v
}

// minUTF16 measures length in UTF-16 code units, the way browsers count
// form input, so an astral symbol counts twice.
func minUTF16(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(utf16.Encode([]rune(fl.Field().String()))) >= n
}

type Controller struct {
	token     string
	channel   Channel
	notifier  notify.Notifier
	nav       navigation.Navigator
	validate  bool
	minLength int

	mu              sync.Mutex
	newPassword     string
	confirmPassword string
	mounted         bool
	unsubscribe     func()
	handingOff      bool

	// outcome bookkeeping: each transition is acted on once
	lastError      string
	submittedSince bool
	succeeded      bool
}

func New(token string, ch Channel, n notify.Notifier, nav navigation.Navigator, opts ...Option) *Controller {
	c := &Controller{
		token:     token,
		channel:   ch,
		notifier:  n,
		nav:       nav,
		validate:  true,
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Token() string { return c.token }

// UpdateField stores value in field. No validation happens here.
func (c *Controller) UpdateField(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch field {
	case FieldNewPassword:
		c.newPassword = value
	case FieldConfirmPassword:
		c.confirmPassword = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Values returns the current field contents.
func (c *Controller) Values() (newPassword, confirmPassword string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newPassword, c.confirmPassword
}

func (c *Controller) Loading() bool {
	return c.channel.State().Loading
}

// Submit validates the fields and hands the reset request to the channel.
// It returns as soon as the request is handed off.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	req := domain.ResetRequest{
		Token:           c.token,
		NewPassword:     c.newPassword,
		ConfirmPassword: c.confirmPassword,
	}

	// handing off holds the latch until the channel reports loading itself
	if c.handingOff || c.channel.State().Loading {
		c.mu.Unlock()
		metrics.ResetSubmissions.WithLabelValues("in_flight").Inc()
		return ErrSubmitInFlight
	}

	if c.validate {
		if verr := c.check(req); verr != nil {
			c.mu.Unlock()
			c.notifier.Notify(verr.Message, verr.Level)
			return verr
		}
	}

	c.handingOff = true
	c.submittedSince = true
	c.mu.Unlock()

	metrics.ResetSubmissions.WithLabelValues("dispatched").Inc()
	c.channel.ResetPassword(ctx, req.Token, req.Payload())

	c.mu.Lock()
	c.handingOff = false
	c.mu.Unlock()
	return nil
}

// check applies the length rule before the match rule.
func (c *Controller) check(req domain.ResetRequest) *ValidationError {
	if err := validate.Var(req.NewPassword, fmt.Sprintf("min_utf16=%d", c.minLength)); err != nil {
		metrics.ResetSubmissions.WithLabelValues("too_short").Inc()
		return &ValidationError{
			Field:   FieldNewPassword,
			Level:   notify.LevelWarning,
			Message: tooShortMessage(c.minLength),
		}
	}
	if err := validate.VarWithValue(req.ConfirmPassword, req.NewPassword, "eqfield"); err != nil {
		metrics.ResetSubmissions.WithLabelValues("mismatch").Inc()
		return &ValidationError{
			Field:   FieldConfirmPassword,
			Level:   notify.LevelError,
			Message: MsgPasswordsMismatch,
		}
	}
	return nil
}

// Mount starts observing the channel and reacts to its current state once.
func (c *Controller) Mount() {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	unsubscribe := c.channel.Subscribe(c.onOutcome)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.onOutcome(c.channel.State())
}

// Unmount stops observing the channel. Outcomes arriving later are ignored.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.mounted = false
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) onOutcome(st domain.OutcomeFlags) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}

	var showError string
	if st.Error != "" && (st.Error != c.lastError || c.submittedSince) {
		showError = st.Error
		c.lastError = st.Error
		c.submittedSince = false
	}

	navigate := st.Success && !c.succeeded
	if navigate {
		c.succeeded = true
	}
	c.mu.Unlock()

	if showError != "" {
		c.notifier.Notify(showError, notify.LevelError)
		c.channel.ClearErrors()
	}
	if navigate {
		c.notifier.Notify(MsgPasswordUpdated, notify.LevelSuccess)
		c.nav.NavigateTo(navigation.LoginPath)
	}
}
