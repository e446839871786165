package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/templates"
	"github.com/DoyleJ11/spelling-bee-backend/internal/tournament"
	"github.com/DoyleJ11/spelling-bee-backend/internal/wordimport"
	"github.com/DoyleJ11/spelling-bee-backend/internal/words"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

const maxBody = 4 << 20

type api struct {
	Deps
	log *zap.Logger
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func (a *api) createTournament(w http.ResponseWriter, r *http.Request) {
	for {
		code, err := GenerateCode()
		if err != nil {
			writeError(w, err, nil)
			return
		}
		t, err := a.Hub.Create(r.Context(), code)
		if errors.Is(err, hub.ErrExists) {
			a.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			ID string `json:"id"`
		}{ID: t.ID()})
		return
	}
}

// tournamentFor starts the controller on first use, resuming from the
// stored ledger.
func (a *api) tournamentFor(r *http.Request) (*tournament.Tournament, error) {
	return a.Hub.Ensure(r.Context(), chi.URLParam(r, "id"))
}

func (a *api) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := a.tournamentFor(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	v, err := t.View(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *api) postCommand(w http.ResponseWriter, r *http.Request) {
	var msg types.CommandMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&msg); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	t, err := a.tournamentFor(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	var res tournament.Result
	switch msg.Type {
	case msgResetDisplay:
		res = t.ResetDisplay(r.Context())
	case msgClear:
		res = t.Clear(r.Context())
	default:
		cmd, err := toEngineCommand(msg)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		res = t.Do(r.Context(), cmd)
	}

	if res.Err != nil {
		writeError(w, res.Err, res.Notices)
		return
	}
	writeJSON(w, http.StatusOK, types.CommandResult{Notices: res.Notices})
}

type participantIn struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Stars      int    `json:"stars"`
	Eliminated bool   `json:"eliminated"`
}

// putParticipants replaces the roster. It is refused once a round has started.
func (a *api) putParticipants(w http.ResponseWriter, r *http.Request) {
	var in []participantIn
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&in); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	t, err := a.tournamentFor(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	roster, err := toRoster(in)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if res := t.ReplaceRoster(r.Context(), roster); res.Err != nil {
		writeError(w, res.Err, res.Notices)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func toRoster(in []participantIn) (ledger.Roster, error) {
	seen := map[string]bool{}
	r := make(ledger.Roster, 0, len(in))
	for i, p := range in {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: participant %d has no name", errBadRequest, i)
		}
		id := p.ID
		if id == "" {
			id = "p" + strconv.Itoa(i+1)
		}
		if seen[id] || strings.Contains(id, "/") {
			return nil, fmt.Errorf("%w: bad or duplicate id %q", errBadRequest, id)
		}
		if p.Stars < 0 {
			return nil, fmt.Errorf("%w: %s has negative stars", errBadRequest, id)
		}
		seen[id] = true
		r = append(r, ledger.Participant{ID: id, Name: name, Stars: p.Stars, Eliminated: p.Eliminated})
	}
	ledger.Sort(r)
	return r, nil
}

func (a *api) getWinners(w http.ResponseWriter, r *http.Request) {
	entries, err := ledger.LoadWinners(r.Context(), a.Store, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Entries []ledger.WinnerEntry `json:"entries"`
		Totals  []ledger.WinnerTotal `json:"totals"`
	}{Entries: entries, Totals: ledger.Aggregate(entries)})
}

func (a *api) getTemplates(w http.ResponseWriter, r *http.Request) {
	set, err := templates.Load(r.Context(), a.Store, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (a *api) putTemplates(w http.ResponseWriter, r *http.Request) {
	var set templates.Set
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&set); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	if err := set.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	if err := templates.Save(r.Context(), a.Store, chi.URLParam(r, "id"), set); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// displayQR encodes the display stream URL so a venue screen can be pointed at it.
func (a *api) displayQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	base := a.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	target := displayURL(base, id)

	const qrSize = 320
	png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func displayURL(base, id string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws?tournament=" + id
}

type wordListIn struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

// postWordList accepts JSON, CSV (text/csv) or one word per line (text/plain).
// CSV options come from the query: column, header, uppercase.
func (a *api) postWordList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := wordimport.Options{
		Header:    q.Get("header") == "true",
		Uppercase: q.Get("uppercase") == "true",
	}
	if c := q.Get("column"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: column %q", errBadRequest, c), nil)
			return
		}
		opts.Column = n
	}

	list := words.List{ID: q.Get("id"), Name: q.Get("name")}
	body := io.LimitReader(r.Body, maxBody)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	switch ct {
	case "text/csv":
		list.Words, err = wordimport.ParseCSV(body, opts)
	case "text/plain":
		list.Words, err = wordimport.ParseLines(body, opts)
	default:
		var in wordListIn
		if derr := json.NewDecoder(body).Decode(&in); derr != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, derr), nil)
			return
		}
		if in.ID != "" {
			list.ID = in.ID
		}
		if in.Name != "" {
			list.Name = in.Name
		}
		list.Words, err = wordimport.Normalize(in.Words, opts)
	}
	if err != nil {
		if !errors.Is(err, wordimport.ErrEmpty) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		writeError(w, err, nil)
		return
	}

	if list.ID == "" {
		if list.ID, err = GenerateCode(); err != nil {
			writeError(w, err, nil)
			return
		}
	}
	if strings.Contains(list.ID, "/") {
		writeError(w, fmt.Errorf("%w: bad id %q", errBadRequest, list.ID), nil)
		return
	}
	if err := saveWordList(r.Context(), a.Store, list); err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func saveWordList(ctx context.Context, st store.Store, list words.List) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return st.Set(ctx, ledger.WordListPath(list.ID), b)
}

func (a *api) getWordList(w http.ResponseWriter, r *http.Request) {
	raw, err := a.Store.Get(r.Context(), ledger.WordListPath(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
