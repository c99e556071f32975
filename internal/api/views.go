package api

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"dustbinpro/internal/models"
	"dustbinpro/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{
	"dashboard", "book_cleaning", "booking_history", "make_payment",
	"profile", "support", "notifications", "error",
}

var viewFuncs = template.FuncMap{
	"date":     func(t time.Time) string { return t.Format("02 Jan 2006") },
	"datetime": func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
	"money":    func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"lower":    strings.ToLower,
	"cancellable": func(status string) bool {
		return models.IsActiveStatus(status)
	},
}

// views holds one template set per page, each joined with the layout.
type views map[string]*template.Template

func loadViews() (views, error) {
	v := make(views, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(viewFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s view: %w", page, err)
		}
		v[page] = t
	}
	return v, nil
}

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// render executes page inside the layout. Every page gets the session's
// display name, pending flash messages and the CSRF token.
func (s *Server) render(c *gin.Context, status int, page, title string, data gin.H) {
	t, ok := s.views[page]
	if !ok {
		s.logger.Error().Str("page", page).Msg("unknown view")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if data == nil {
		data = gin.H{}
	}
	sess := session.Get(c)
	flash, flashErr := session.PopFlash(c)
	data["Title"] = title
	data["Flash"] = flash
	data["FlashError"] = flashErr
	data["CSRFToken"] = csrf.Token(c.Request)
	data["CSRFField"] = csrf.TemplateField(c.Request)
	if _, ok := data["CustomerName"]; !ok {
		data["CustomerName"] = displayName(sess)
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(c.Writer, "layout", data); err != nil {
		s.logger.Error().Err(err).Str("page", page).Msg("render view error")
	}
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	s.render(c, status, "error", http.StatusText(status), gin.H{"Message": message})
}

func displayName(sess *models.Session) string {
	if sess.CustomerName != "" {
		return sess.CustomerName
	}
	return models.DefaultCustomerName
}
