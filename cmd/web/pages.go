package main

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/auditlog-admin/internal/admin"
)

const apiLogEntryPrefix = "/admin/auditlog/logentry/"

type pages struct {
	api  *apiClient
	tmpl map[string]*template.Template
}

// mustParseTemplates pairs every page with layout.html; login is standalone.
func mustParseTemplates() map[string]*template.Template {
	funcs := template.FuncMap{
		"webURL": webURL,
		"deref": func(s *string) string {
			if s == nil {
				return "None"
			}
			return *s
		},
	}
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	out := map[string]*template.Template{
		"login": template.Must(template.New("login.html").Funcs(funcs).ParseFS(sub, "login.html")),
	}
	for _, page := range []string{"changelist", "detail", "history"} {
		out[page] = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(sub, "layout.html", page+".html"))
	}
	return out
}

func (p *pages) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	t, ok := p.tmpl[name]
	if !ok {
		http.Error(w, "unknown template", http.StatusInternalServerError)
		return
	}
	exec := "layout.html"
	if name == "login" {
		exec = "login.html"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, exec, data); err != nil {
		slog.Error("render template", "template", name, "err", err)
	}
}

// webURL maps an API admin link onto the matching UI page. Links to
// pages the UI does not have come back empty and render as text.
func webURL(href string) string {
	if !strings.HasPrefix(href, apiLogEntryPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(href, apiLogEntryPrefix)
	if strings.HasPrefix(rest, "?") || rest == "" {
		return "/entries" + rest
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 2 && parts[1] == "change" {
		return "/entries/" + parts[0]
	}
	if len(parts) == 2 && parts[1] == "history" {
		return "/entries/" + parts[0] + "/history"
	}
	return ""
}

// ==========================
// Auth
// ==========================

func (p *pages) loginForm(w http.ResponseWriter, r *http.Request) {
	p.renderTemplate(w, "login", map[string]interface{}{"Error": r.URL.Query().Get("error")})
}

func (p *pages) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=invalid+form", http.StatusFound)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/login?error=username+and+password+required", http.StatusFound)
		return
	}

	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := p.api.do(r, http.MethodPost, "/auth/login", "", body, &resp); err != nil || resp.Token == "" {
		http.Redirect(w, r, "/login?error=invalid+credentials", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    resp.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400,
	})
	http.Redirect(w, r, "/entries", http.StatusFound)
}

func logout(w http.ResponseWriter, r *http.Request) {
	clearAuthAndRedirectToLogin(w, r)
}

func clearAuthAndRedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		if err != nil || c.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func token(r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// apiFailed renders an API error. An expired token sends the browser back to login.
func (p *pages) apiFailed(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiStatusError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}
		http.Error(w, apiErr.Message, apiErr.Status)
		return
	}
	slog.Error("api call failed", "path", r.URL.Path, "err", err)
	http.Error(w, "API unavailable", http.StatusBadGateway)
}

// ==========================
// Changelist
// ==========================

type pageLink struct {
	Label   string
	URL     string
	Current bool
}

type sortLink struct {
	admin.Column
	URL string
}

type filterChoice struct {
	admin.Choice
	URL string
}

type filterView struct {
	Title   string
	AllURL  string
	Choices []filterChoice
}

type changelistPage struct {
	Result   admin.ChangelistResult
	Columns  []sortLink
	Filters  []filterView
	Query    url.Values
	ClearURL string
	Pages    []pageLink
	From, To int
}

func (p *pages) changelist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var res admin.ChangelistResult
	if err := p.api.get(r, apiLogEntryPrefix+"?"+q.Encode(), token(r), &res); err != nil {
		p.apiFailed(w, r, err)
		return
	}

	page := changelistPage{Result: res, Query: q, ClearURL: "/entries"}
	for _, c := range res.Columns {
		link := sortLink{Column: c}
		if c.Sortable {
			link.URL = withParam(q, "o", nextOrdering(c), true)
		}
		page.Columns = append(page.Columns, link)
	}
	for _, f := range res.Filters {
		view := filterView{Title: f.Title, AllURL: withParam(q, f.Parameter, "", true)}
		for _, c := range f.Choices {
			view.Choices = append(view.Choices, filterChoice{Choice: c, URL: withParam(q, f.Parameter, c.Value, true)})
		}
		page.Filters = append(page.Filters, view)
	}
	if res.Total > 0 {
		page.From = res.Offset + 1
		page.To = res.Offset + len(res.Rows)
	}
	page.Pages = pageLinks(q, res.Total, res.Limit, res.Offset)
	p.renderTemplate(w, "changelist", page)
}

// nextOrdering toggles a column: unsorted or ascending goes descending first.
func nextOrdering(c admin.Column) string {
	if c.Sorted == "desc" {
		return c.Name
	}
	return "-" + c.Name
}

func withParam(q url.Values, key, value string, resetOffset bool) string {
	return withParamAt("/entries", q, key, value, resetOffset)
}

func withParamAt(path string, q url.Values, key, value string, resetOffset bool) string {
	out := url.Values{}
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	if value == "" {
		out.Del(key)
	} else {
		out.Set(key, value)
	}
	if resetOffset {
		out.Del("offset")
	}
	if len(out) == 0 {
		return path
	}
	return path + "?" + out.Encode()
}

func pageLinks(q url.Values, total, limit, offset int) []pageLink {
	return pageLinksAt("/entries", q, total, limit, offset)
}

func pageLinksAt(path string, q url.Values, total, limit, offset int) []pageLink {
	if limit <= 0 || total <= limit {
		return nil
	}
	var links []pageLink
	for i, off := 1, 0; off < total; i, off = i+1, off+limit {
		v := ""
		if off > 0 {
			v = strconv.Itoa(off)
		}
		links = append(links, pageLink{
			Label:   strconv.Itoa(i),
			URL:     withParamAt(path, q, "offset", v, false),
			Current: off == offset,
		})
	}
	return links
}

// ==========================
// Detail / History
// ==========================

func (p *pages) detail(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var res admin.DetailResult
	if err := p.api.get(r, fmt.Sprintf("%s%d/change/", apiLogEntryPrefix, id), token(r), &res); err != nil {
		p.apiFailed(w, r, err)
		return
	}
	p.renderTemplate(w, "detail", res)
}

type historyPage struct {
	ID     int                   `json:"id"`
	Items  []admin.ChangelistRow `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Pages  []pageLink            `json:"-"`
}

func (p *pages) history(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var res historyPage
	if err := p.api.get(r, fmt.Sprintf("%s%d/history/?%s", apiLogEntryPrefix, id, q.Encode()), token(r), &res); err != nil {
		p.apiFailed(w, r, err)
		return
	}
	res.Pages = pageLinksAt(fmt.Sprintf("/entries/%d/history", id), q, res.Total, res.Limit, res.Offset)
	p.renderTemplate(w, "history", res)
}

func entryID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
