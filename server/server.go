// Package server exposes the generated locale files over HTTP for a web
// front-end: message catalogs, the locale list, and a CSRF-protected
// locale switch.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/exilekit/langsync/csrf"
	"github.com/exilekit/langsync/locale"
	"github.com/exilekit/langsync/locales"
)

// localeCookieMaxAge keeps an explicit locale choice for a year.
const localeCookieMaxAge = 365 * 24 * 60 * 60

// Options configures the server.
type Options struct {
	// Dir is the directory holding <lang>.json files.
	Dir string
	// Locales are the codes served; the first is the default.
	Locales []string
	// Secure marks cookies Secure.
	Secure bool
	// Quiet disables request logging.
	Quiet   bool
	OnLog   func(format string, args ...any)
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

// Server serves locale data.
type Server struct {
	opts       Options
	store      *locales.Store
	negotiator *locale.Negotiator
	supported  map[string]bool
}

// New returns a server over opts.Dir.
func New(opts Options) *Server {
	if len(opts.Locales) == 0 {
		for _, m := range locale.List() {
			opts.Locales = append(opts.Locales, m.Code)
		}
	}
	supported := make(map[string]bool, len(opts.Locales))
	for _, c := range opts.Locales {
		supported[c] = true
	}
	return &Server{
		opts:       opts,
		store:      locales.NewStore(opts.Dir),
		negotiator: locale.NewNegotiator(opts.Locales),
		supported:  supported,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if !s.opts.Quiet {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer)
	router.Use(csrf.Middleware(csrf.Options{Secure: s.opts.Secure, OnError: s.opts.OnError}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	router.Route("/api", func(r chi.Router) {
		r.Get("/locales", s.handleLocales)
		r.Get("/messages", s.handleMessages)
		r.With(csrf.RequireToken).Post("/locale", s.handleSetLocale)
	})
	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.log("Serving %s on http://%s", s.opts.Dir, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLocale picks ?lang= when supported, then the locale cookie and
// Accept-Language.
func (s *Server) requestLocale(r *http.Request) string {
	if q := r.URL.Query().Get("lang"); s.supported[q] {
		return q
	}
	var cookie string
	if c, err := r.Cookie(locale.CookieName); err == nil {
		cookie = c.Value
	}
	return s.negotiator.Negotiate(cookie, r.Header.Get("Accept-Language"))
}

type localesResponse struct {
	Default string        `json:"default"`
	Current string        `json:"current"`
	Locales []locale.Meta `json:"locales"`
}

func (s *Server) handleLocales(w http.ResponseWriter, r *http.Request) {
	resp := localesResponse{Default: s.opts.Locales[0], Current: s.requestLocale(r)}
	for _, c := range s.opts.Locales {
		resp.Locales = append(resp.Locales, locale.Resolve(c))
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

type messagesResponse struct {
	Locale   string `json:"locale"`
	Messages any    `json:"messages"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	lang := s.requestLocale(r)
	doc, exists, err := s.store.Read(lang)
	if err == nil && !exists && lang != s.opts.Locales[0] {
		lang = s.opts.Locales[0]
		doc, exists, err = s.store.Read(lang)
	}
	if err != nil {
		s.opts.logError("reading %s messages: %v", lang, err)
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "messages unavailable"})
		return
	}
	if !exists {
		s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "no messages for " + lang})
		return
	}
	s.writeJSON(w, r, http.StatusOK, messagesResponse{Locale: lang, Messages: doc})
}

type setLocaleRequest struct {
	Locale string `json:"locale"`
}

func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	var req setLocaleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !s.supported[req.Locale] {
		s.writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "unsupported locale " + req.Locale})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     locale.CookieName,
		Value:    req.Locale,
		Path:     "/",
		MaxAge:   localeCookieMaxAge,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, r, http.StatusOK, setLocaleRequest{Locale: req.Locale})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.opts.logError("%s %s: encoding response (request %s): %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}
}
