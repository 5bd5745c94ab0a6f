package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Accounts *AccountHandler
	Auth     *AuthHandler
	Events   *EventHandler

	// RequireAuth wraps event routes; account creation and login stay open.
	RequireAuth func(http.Handler) http.Handler
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Accounts != nil {
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Accounts.Create(w, r)
		})
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Events != nil {
		events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})

		eventsByID := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/events/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithEventID(r.Context(), id)
			r = r.WithContext(ctx)

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Events.Get(w, r)
				case http.MethodPut:
					cfg.Events.Update(w, r)
				case http.MethodDelete:
					cfg.Events.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "invites":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Events.SendInvites(w, r)
			default:
				http.NotFound(w, r)
			}
		})

		if cfg.RequireAuth != nil {
			mux.Handle("/events", cfg.RequireAuth(events))
			mux.Handle("/events/", cfg.RequireAuth(eventsByID))
		} else {
			mux.Handle("/events", events)
			mux.Handle("/events/", eventsByID)
		}
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
