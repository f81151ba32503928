package table

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roach88/cardstack/internal/auth"
	"github.com/roach88/cardstack/internal/card"
)

// DrawResponse is the body of POST /table/draw.
type DrawResponse struct {
	Card  *card.Card `json:"card,omitempty"`
	Empty bool       `json:"empty"`
}

// TopResponse is the body of GET /table/top.
type TopResponse struct {
	Card card.Card `json:"card"`
}

// Handler serves t over HTTP. Every route requires a bearer token issued by
// signer.
func Handler(t *Table, signer *auth.Signer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /table/draw", func(w http.ResponseWriter, r *http.Request) {
		c, ok, err := t.Draw(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		resp := DrawResponse{Empty: !ok}
		if ok {
			resp.Card = &c
			pid, _ := auth.PlayerFrom(r.Context())
			slog.Debug("card drawn", "pid", pid, "card", c.String())
		}
		writeJSON(w, resp)
	})
	mux.HandleFunc("GET /table/top", func(w http.ResponseWriter, r *http.Request) {
		c, err := t.Top(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, TopResponse{Card: c})
	})
	mux.HandleFunc("GET /table", func(w http.ResponseWriter, r *http.Request) {
		counts, err := t.Counts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, counts)
	})
	return signer.Require(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write table response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
