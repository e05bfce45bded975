package handlers

import (
	"html/template"

	"github.com/baechuer/storefront-bff/internal/notify"
)

type resetPageData struct {
	Action        string
	Loading       bool
	Notifications []notify.Notification
	TermsURL      string
	PrivacyURL    string
	RegisterPath  string
}

// Refresh while a request is in flight so the outcome shows without scripts.
var resetPage = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="referrer" content="no-referrer">
{{- if .Loading}}
<meta http-equiv="refresh" content="2">
{{- end}}
<title>Reset Password</title>
</head>
<body>
<main>
  <aside>
    <h1>Reset Password</h1>
    <p>Update your password to regain access to your account.</p>
  </aside>
  <section>
    <h2>Reset Password</h2>
    {{- range .Notifications}}
    <div class="notification notification-{{.Level}}" role="alert">{{.Message}}</div>
    {{- end}}
    {{- if .Loading}}
    <div class="backdrop-loader" role="status" aria-live="polite">Updating password...</div>
    {{- end}}
    <form method="post" action="{{.Action}}">
      <label>New Password
        <input type="password" name="newPassword" autocomplete="new-password" required>
      </label>
      <label>Confirm New Password
        <input type="password" name="confirmPassword" autocomplete="new-password" required>
      </label>
      <p class="disclaimer">By continuing, you agree to our
        <a href="{{.TermsURL}}">Terms of Use</a> and
        <a href="{{.PrivacyURL}}">Privacy Policy</a>.</p>
      <button type="submit"{{if .Loading}} disabled{{end}}>Submit</button>
    </form>
    <a href="{{.RegisterPath}}">New to our platform? Create an account</a>
  </section>
</main>
</body>
</html>
`))
