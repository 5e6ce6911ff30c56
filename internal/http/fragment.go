package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Notice is the kind of toast the page shows for an HX-Trigger
// "show-notification" event.
type Notice string

const (
	NoticeSuccess Notice = "success"
	NoticeError   Notice = "error"
	NoticeWarning Notice = "warning"
	NoticeInfo    Notice = "info"
)

// milliseconds each notice stays on screen
var noticeDuration = map[Notice]int{
	NoticeSuccess: 3000,
	NoticeError:   5000,
	NoticeWarning: 4000,
	NoticeInfo:    3000,
}

// Fragment is an HTMX reply: an optional HTML body plus the client-side
// events raised through HX-Trigger.
type Fragment struct {
	status int
	events map[string]any
	allow  string
	html   *string
}

func NewFragment() *Fragment {
	return &Fragment{status: http.StatusOK, events: map[string]any{}}
}

func (f *Fragment) Status(code int) *Fragment {
	f.status = code
	return f
}

// ExpenseRecorded raises expense:recorded with the category that changed.
func (f *Fragment) ExpenseRecorded(category string) *Fragment {
	f.events["expense:recorded"] = map[string]string{"category": category}
	return f
}

// BudgetRefresh makes every budget panel on the page reload.
func (f *Fragment) BudgetRefresh() *Fragment {
	f.events["budget:refresh"] = struct{}{}
	return f
}

func (f *Fragment) FormReset() *Fragment {
	f.events["form:reset"] = struct{}{}
	return f
}

// Notify raises show-notification. A later call replaces an earlier one.
func (f *Fragment) Notify(kind Notice, message string) *Fragment {
	f.events["show-notification"] = map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": noticeDuration[kind],
	}
	return f
}

func (f *Fragment) HTML(body string) *Fragment {
	f.html = &body
	return f
}

func (f *Fragment) Write(w http.ResponseWriter) {
	h := w.Header()
	if f.allow != "" {
		h.Set("Allow", f.allow)
	}
	if f.html != nil {
		h.Set("Content-Type", "text/html; charset=utf-8")
	}
	if len(f.events) > 0 {
		if b, err := json.Marshal(f.events); err == nil {
			h.Set("HX-Trigger", string(b))
		}
	}
	w.WriteHeader(f.status)
	if f.html != nil && *f.html != "" {
		_, _ = w.Write([]byte(*f.html))
	}
}

// ErrorFragment renders message as an escaped error block and raises the
// matching error notice.
func ErrorFragment(status int, message string) *Fragment {
	return NewFragment().
		Status(status).
		Notify(NoticeError, message).
		HTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func methodNotAllowed(allow string) *Fragment {
	f := NewFragment().Status(http.StatusMethodNotAllowed)
	f.allow = allow
	return f
}
