// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"campmap/internal/app"
	"campmap/internal/domain"
)

type Handlers struct {
	G *app.GeocodeService
	O *app.OfferService
}

var validate = validator.New()

type errorBody struct {
	Error string `json:"error"`
}

type geocodeBody struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Formatted string  `json:"formatted"`
}

// offersQuery is the raw /api/offers query before it becomes app.Criteria.
type offersQuery struct {
	Types []string `validate:"dive,oneof=camp day-camp"`
	From  string   `validate:"omitempty,datetime=2006-01-02"`
	To    string   `validate:"omitempty,datetime=2006-01-02"`
	Sort  string   `validate:"omitempty,oneof=price date name"`
	Dir   string   `validate:"omitempty,oneof=asc desc"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Get("/api/geocode", h.geocode)
	s.mux.Get("/api/offers", h.listOffers)
	s.mux.Put("/api/offers/{id}/hover", h.hover)
	s.mux.Delete("/api/offers/{id}/hover", h.leave)
	s.mux.Post("/api/offers/{id}/select", h.selectOffer)
	s.mux.Get("/api/filters", h.filterBar)
	s.mux.Post("/api/filters", h.applyFilter)
	s.mux.Post("/api/map", h.mountMap)
	s.mux.Delete("/api/map", h.unmountMap)
}

const maxBodyBytes = 1 << 16

// filterParams are the query keys that switch /api/offers from the session
// filter bar to a one-shot filter.
var filterParams = []string{"type", "city", "from", "to", "q", "sort", "dir"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError renders err as {"error": message} with the status of its kind.
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeJSON(w, de.HTTPStatus(), errorBody{Error: de.Message})
		return
	}
	log.Error().Err(err).Msg("unexpected handler error")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal error"})
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) geocode(w http.ResponseWriter, r *http.Request) {
	c, err := h.G.Geocode(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, geocodeBody{Lat: c.Lat, Lng: c.Lng, Formatted: c.Formatted})
}

func (h *Handlers) listOffers(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	in := offersQuery{
		Types: qs["type"],
		From:  qs.Get("from"),
		To:    qs.Get("to"),
		Sort:  qs.Get("sort"),
		Dir:   qs.Get("dir"),
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, domain.ValidationError(invalidMessage(err)))
		return
	}

	_, err := h.O.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	c := h.O.FilterCriteria()
	if hasFilterParams(r) {
		types := make([]domain.OfferType, 0, len(in.Types))
		for _, t := range in.Types {
			types = append(types, domain.OfferType(t))
		}
		c, err = app.CriteriaFrom(h.O.Offers(), app.FilterQuery{
			Types:      types,
			City:       qs.Get("city"),
			From:       in.From,
			To:         in.To,
			Query:      qs.Get("q"),
			Sort:       app.SortField(in.Sort),
			Descending: in.Dir == "desc",
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}

	view := h.O.View(c, qs.Get("hovered"), qs.Get("active"))

	etag, body := calcETagAndBody(view)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write offers body")
	}
}

func hasFilterParams(r *http.Request) bool {
	qs := r.URL.Query()
	for _, k := range filterParams {
		if qs.Has(k) {
			return true
		}
	}
	return false
}

func (h *Handlers) hover(w http.ResponseWriter, r *http.Request) {
	if _, err := h.O.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if err := h.O.Hover(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) leave(w http.ResponseWriter, r *http.Request) {
	h.O.Leave(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) selectOffer(w http.ResponseWriter, r *http.Request) {
	if _, err := h.O.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	sel, err := h.O.Select(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (h *Handlers) filterBar(w http.ResponseWriter, r *http.Request) {
	if _, err := h.O.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.O.Filter())
}

func (h *Handlers) applyFilter(w http.ResponseWriter, r *http.Request) {
	var a app.FilterAction
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&a); err != nil {
		writeError(w, domain.ValidationError("invalid JSON body"))
		return
	}
	if err := validate.Struct(a); err != nil {
		writeError(w, domain.ValidationError("unknown filter op"))
		return
	}
	if _, err := h.O.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	bar, err := h.O.ApplyFilter(a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bar)
}

func (h *Handlers) mountMap(w http.ResponseWriter, _ *http.Request) {
	h.O.MountMap()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) unmountMap(w http.ResponseWriter, _ *http.Request) {
	h.O.UnmountMap()
	w.WriteHeader(http.StatusNoContent)
}

func invalidMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid query"
	}
	switch ve[0].StructField() {
	case "From", "To":
		return "dates must be YYYY-MM-DD"
	case "Sort":
		return "sort must be one of price, date, name"
	case "Dir":
		return "dir must be asc or desc"
	default:
		return "type must be camp or day-camp"
	}
}
