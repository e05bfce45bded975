package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/internal/navigation"
	"github.com/baechuer/storefront-bff/internal/notify"
	"github.com/baechuer/storefront-bff/internal/resetform"
	"github.com/baechuer/storefront-bff/internal/session"
	"github.com/google/uuid"
)

const (
	SessionCookie = "reset_sid"
	FlashCookie   = "storefront_flash"

	TermsURL   = "https://www.example.com/terms"
	PrivacyURL = "https://www.example.com/privacy"

	maxFormBytes = 8 << 10
)

// FormRegistry is the part of session.Registry the reset pages need.
type FormRegistry interface {
	Open(sid, token string) *session.Form
	Get(sid, token string) (*session.Form, bool)
	Close(sid, token string)
}

type ResetHandler struct {
	forms      FormRegistry
	statusWait time.Duration
}

func NewResetHandler(forms FormRegistry) *ResetHandler {
	return &ResetHandler{forms: forms, statusWait: 2 * time.Second}
}

// ResetStatus is what the status endpoint and JSON submits report.
type ResetStatus struct {
	Loading       bool                  `json:"loading"`
	Notifications []notify.Notification `json:"notifications"`
	Redirect      string                `json:"redirect,omitempty"`
}

// Page renders the reset form, or follows the navigation the form asked for.
func (h *ResetHandler) Page(w http.ResponseWriter, r *http.Request) {
	token, ok := navigation.TokenFromPath(r.URL.EscapedPath())
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := resetPageData{
		Action:        navigation.ResetPath(token),
		Notifications: []notify.Notification{},
		TermsURL:      TermsURL,
		PrivacyURL:    PrivacyURL,
		RegisterPath:  navigation.RegisterPath,
	}

	// Only a submit mounts a form; a plain visit renders an empty one.
	if sid, ok := sessionFromCookie(r); ok {
		if f, ok := h.forms.Get(sid, token); ok {
			if path, ok := f.Redirect.Take(); ok {
				setFlash(w, f.Notifications.Drain())
				h.forms.Close(sid, token)
				http.Redirect(w, r, path, http.StatusSeeOther)
				return
			}
			data.Loading = f.Controller.Loading()
			data.Notifications = f.Notifications.Drain()
		}
	}

	var buf bytes.Buffer
	if err := resetPage.Execute(&buf, data); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("render_reset_page_failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Submit applies the posted fields to the form and submits it. Browsers are
// sent back to the page; JSON clients get the form status.
func (h *ResetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	token, ok := navigation.TokenFromPath(r.URL.EscapedPath())
	if !ok {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		sendError(w, r, "invalid_request", "malformed form body", http.StatusBadRequest)
		return
	}

	sid := ensureSession(w, r)
	f := h.forms.Open(sid, token)

	if err := f.Controller.UpdateField(resetform.FieldNewPassword, r.PostForm.Get(string(resetform.FieldNewPassword))); err != nil {
		sendError(w, r, "internal_error", "could not update form", http.StatusInternalServerError)
		return
	}
	if err := f.Controller.UpdateField(resetform.FieldConfirmPassword, r.PostForm.Get(string(resetform.FieldConfirmPassword))); err != nil {
		sendError(w, r, "internal_error", "could not update form", http.StatusInternalServerError)
		return
	}

	status := http.StatusAccepted
	var verr *resetform.ValidationError
	switch err := f.Controller.Submit(r.Context()); {
	case err == nil:
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		logger.Ctx(r.Context()).Debug().Str("field", string(verr.Field)).Msg("reset_form_rejected")
	case errors.Is(err, resetform.ErrSubmitInFlight):
		status = http.StatusConflict
		logger.Ctx(r.Context()).Debug().Msg("reset_form_busy")
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("reset_form_submit_failed")
		sendError(w, r, "internal_error", "could not submit form", http.StatusInternalServerError)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, status, h.snapshot(sid, token, f))
		return
	}
	http.Redirect(w, r, navigation.ResetPath(token), http.StatusSeeOther)
}

// Status reports the form state for polling clients. While a request is in
// flight it waits briefly for the outcome.
func (h *ResetHandler) Status(w http.ResponseWriter, r *http.Request) {
	token, ok := navigation.TokenFromPath(strings.TrimSuffix(r.URL.EscapedPath(), "/status"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	sid, ok := sessionFromCookie(r)
	var f *session.Form
	if ok {
		f, ok = h.forms.Get(sid, token)
	}
	if !ok {
		sendError(w, r, "form_not_found", "no reset form for this session", http.StatusNotFound)
		return
	}

	if f.Controller.Loading() {
		ctx, cancel := context.WithTimeout(r.Context(), h.statusWait)
		_ = f.Store.Wait(ctx)
		cancel()
	}

	writeJSON(w, http.StatusOK, h.snapshot(sid, token, f))
}

// snapshot drains the form's notifications. A consumed redirect closes the form.
func (h *ResetHandler) snapshot(sid, token string, f *session.Form) ResetStatus {
	st := ResetStatus{
		Loading:       f.Controller.Loading(),
		Notifications: f.Notifications.Drain(),
	}
	if path, ok := f.Redirect.Take(); ok {
		st.Redirect = path
		h.forms.Close(sid, token)
	}
	return st
}

func sessionFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func ensureSession(w http.ResponseWriter, r *http.Request) string {
	if sid, ok := sessionFromCookie(r); ok {
		return sid
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/password/reset",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return sid
}

// setFlash hands the last notification to the next page.
func setFlash(w http.ResponseWriter, notes []notify.Notification) {
	if len(notes) == 0 {
		return
	}
	last := notes[len(notes)-1]
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(string(last.Level) + ":" + last.Message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
