// Package session keeps one mounted reset form per browser session and token.
package session

import (
	"sync"
	"time"

	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/internal/metrics"
	"github.com/baechuer/storefront-bff/internal/navigation"
	"github.com/baechuer/storefront-bff/internal/notify"
	"github.com/baechuer/storefront-bff/internal/resetform"
	"github.com/baechuer/storefront-bff/internal/store"
	"github.com/robfig/cron/v3"
)

// Form is a mounted reset form and everything it reports into.
type Form struct {
	Controller    *resetform.Controller
	Store         *store.Store
	Notifications *notify.Queue
	Redirect      *navigation.Pending

	lastSeen time.Time
}

type key struct {
	sid   string
	token string
}

type Registry struct {
	client store.AccountClient
	opts   []resetform.Option
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	forms map[key]*Form
	cron  *cron.Cron
}

func NewRegistry(client store.AccountClient, ttl time.Duration, opts ...resetform.Option) *Registry {
	return &Registry{
		client: client,
		opts:   opts,
		ttl:    ttl,
		now:    time.Now,
		forms:  make(map[key]*Form),
	}
}

// Open returns the form for (sid, token), mounting a fresh one if needed.
func (r *Registry) Open(sid, token string) *Form {
	k := key{sid, token}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.forms[k]; ok {
		f.lastSeen = r.now()
		return f
	}

	st := store.New(r.client)
	queue := notify.NewQueue(notify.DefaultMaxVisible)
	pending := &navigation.Pending{}
	ctrl := resetform.New(token, st, notify.Logged(queue, logger.Component("resetform")), pending, r.opts...)
	ctrl.Mount()

	f := &Form{
		Controller:    ctrl,
		Store:         st,
		Notifications: queue,
		Redirect:      pending,
		lastSeen:      r.now(),
	}
	r.forms[k] = f
	metrics.MountedForms.Inc()
	return f
}

// Get returns an already mounted form.
func (r *Registry) Get(sid, token string) (*Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.forms[key{sid, token}]
	if ok {
		f.lastSeen = r.now()
	}
	return f, ok
}

// Close unmounts the form and drops its state.
func (r *Registry) Close(sid, token string) {
	r.mu.Lock()
	f, ok := r.forms[key{sid, token}]
	delete(r.forms, key{sid, token})
	r.mu.Unlock()

	if ok {
		f.Controller.Unmount()
		metrics.MountedForms.Dec()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// Sweep closes forms idle for longer than the TTL. Forms with a request in
// flight are kept until it resolves.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var stale []*Form
	for k, f := range r.forms {
		if f.lastSeen.Before(cutoff) && !f.Store.State().Loading {
			stale = append(stale, f)
			delete(r.forms, k)
		}
	}
	r.mu.Unlock()

	for _, f := range stale {
		f.Controller.Unmount()
		metrics.MountedForms.Dec()
	}
	if len(stale) > 0 {
		logger.Log.Debug().Int("closed", len(stale)).Msg("reset_forms_swept")
	}
	return len(stale)
}

// StartSweeper runs Sweep on schedule, a cron expression such as "@every 1m".
func (r *Registry) StartSweeper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.Sweep() }); err != nil {
		return err
	}
	c.Start()

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	return nil
}

// Stop halts the sweeper and unmounts every form.
func (r *Registry) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	forms := r.forms
	r.forms = make(map[key]*Form)
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, f := range forms {
		f.Controller.Unmount()
		metrics.MountedForms.Dec()
	}
}
