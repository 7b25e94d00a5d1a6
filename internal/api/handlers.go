package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bassins/bassins-api/internal/carte"
	"github.com/bassins/bassins-api/internal/logger"
	"github.com/bassins/bassins-api/internal/production"
	"github.com/bassins/bassins-api/internal/stats"
	"github.com/go-chi/chi/v5"
)

// ReferenceStore lists the distinct values used to populate the filters.
type ReferenceStore interface {
	Regions(ctx context.Context) ([]string, error)
	Departments(ctx context.Context, region string) ([]string, error)
	Communes(ctx context.Context, department string) ([]production.Commune, error)
	Years(ctx context.Context) ([]int, error)
	Sectors(ctx context.Context) ([]string, error)
	Products(ctx context.Context, sector string) ([]string, error)
}

type ProductionWriter interface {
	AddFromTemplate(ctx context.Context, p production.NewProduction) (int64, error)
}

// Store is everything the handlers read from or append to.
type Store interface {
	stats.RecordStore
	carte.GeoStore
	ReferenceStore
	ProductionWriter
}

type Handler struct {
	engine  *stats.Engine
	maps    *carte.Builder
	ref     ReferenceStore
	writer  ProductionWriter
	log     *logger.Logger
	timeout time.Duration
}

// New wires the engine and the map builder over store. timeout bounds
// every store call.
func New(store Store, log *logger.Logger, timeout time.Duration) *Handler {
	return &Handler{
		engine: stats.NewEngine(store,
			stats.WithScanTimeout(timeout),
			stats.WithLogger(log.WithField("component", "stats")),
		),
		maps:    carte.NewBuilder(store, timeout),
		ref:     store,
		writer:  store,
		log:     log,
		timeout: timeout,
	}
}

// pathParam returns the decoded value of a route parameter. chi matches on
// the escaped path when the request has one.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func paramsFrom(r *http.Request) stats.Params {
	q := r.URL.Query()
	return stats.Params{
		Year:       q.Get("annee"),
		Sector:     q.Get("filiere"),
		Product:    q.Get("produit"),
		Region:     q.Get("region"),
		Department: q.Get("dept"),
		Commune:    q.Get("commune"),
	}
}

// listOf wraps each value in a single-key object, the shape the map client
// reads for filter lists.
func listOf[T any](key string, values []T) []map[string]T {
	out := make([]map[string]T, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]T{key: v})
	}
	return out
}

func (h *Handler) reference(w http.ResponseWriter, r *http.Request, load func(ctx context.Context) (any, error)) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	v, err := load(ctx)
	if err != nil {
		h.writeError(w, r, stats.StoreFailure(err), "")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	h.reference(w, r, func(ctx context.Context) (any, error) {
		v, err := h.ref.Regions(ctx)
		return listOf("adm1_name1", v), err
	})
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	region := pathParam(r, "region")
	h.reference(w, r, func(ctx context.Context) (any, error) {
		v, err := h.ref.Departments(ctx, region)
		return listOf("nom", v), err
	})
}

func (h *Handler) ListCommunes(w http.ResponseWriter, r *http.Request) {
	dept := pathParam(r, "dept")
	h.reference(w, r, func(ctx context.Context) (any, error) {
		v, err := h.ref.Communes(ctx, dept)
		if v == nil {
			v = []production.Commune{}
		}
		return v, err
	})
}

func (h *Handler) ListYears(w http.ResponseWriter, r *http.Request) {
	h.reference(w, r, func(ctx context.Context) (any, error) {
		v, err := h.ref.Years(ctx)
		return listOf("annee", v), err
	})
}

func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	h.reference(w, r, func(ctx context.Context) (any, error) {
		v, err := h.ref.Sectors(ctx)
		return listOf("filiere", v), err
	})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sector := strings.TrimSpace(pathParam(r, "filiere"))
	if sector == "" {
		writeMessage(w, http.StatusBadRequest, "filiere est requise")
		return
	}
	h.reference(w, r, func(ctx context.Context) (any, error) {
		v, err := h.ref.Products(ctx, sector)
		return listOf("nom", v), err
	})
}

// CountryLayer returns every commune outline.
func (h *Handler) CountryLayer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	fc, err := h.maps.Country(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Aucune commune")
		return
	}
	addServerTiming(w, timing("geo", start))
	writeJSON(w, http.StatusOK, fc)
}

// ProductionLayer returns the production records matching the query
// filters as map features.
func (h *Handler) ProductionLayer(w http.ResponseWriter, r *http.Request) {
	f, err := stats.NewFilterSpec(paramsFrom(r))
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	start := time.Now()
	fc, err := h.maps.Productions(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err, "Aucune donnée")
		return
	}
	addServerTiming(w, timing("geo", start))
	writeJSON(w, http.StatusOK, fc)
}

// ZoneLayer returns the outline of one commune, department or region.
func (h *Handler) ZoneLayer(w http.ResponseWriter, r *http.Request) {
	zone := pathParam(r, "zone")
	level := r.URL.Query().Get("level")

	start := time.Now()
	fc, err := h.maps.Zone(r.Context(), zone, level)
	switch {
	case errors.Is(err, carte.ErrUnknownLevel):
		writeMessage(w, http.StatusNotFound, "level invalide")
		return
	case err != nil:
		h.writeError(w, r, err, "Zone non trouvée")
		return
	}
	addServerTiming(w, timing("geo", start))
	writeJSON(w, http.StatusOK, fc)
}

type localisation struct {
	Departement string `json:"departement"`
	Region      string `json:"region"`
	Pcode       string `json:"pcode"`
}

type rangs struct {
	National      int `json:"national"`
	Regional      int `json:"regional"`
	Departemental int `json:"departemental"`
}

type statistiques struct {
	TonnageTotal          float64 `json:"tonnage_total"`
	ContributionNationale string  `json:"contribution_nationale"`
	Rangs                 rangs   `json:"rangs"`
}

type filiereInfo struct {
	Nom   string `json:"nom"`
	Annee string `json:"annee"`
}

type pancarte struct {
	Nom            string              `json:"nom"`
	Localisation   localisation        `json:"localisation"`
	Statistiques   statistiques        `json:"statistiques"`
	FiliereInfo    filiereInfo         `json:"filiere_info"`
	ProduitsDetail []stats.ProductLine `json:"produits_detail"`
}

// percentLabel prints v in its shortest decimal form, keeping ".0" on whole
// numbers ("40.0%", "54.55%").
func percentLabel(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}

// CommuneDetails ranks a commune within its filiere for a year and lists
// its products.
func (h *Handler) CommuneDetails(w http.ResponseWriter, r *http.Request) {
	commune := pathParam(r, "commune")

	f, err := stats.NewFilterSpec(paramsFrom(r))
	if err == nil {
		err = f.RequireScope()
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Paramètres annee et filiere requis")
		return
	}
	year, _ := f.Year()
	rawYear := r.URL.Query().Get("annee")

	start := time.Now()
	d, err := h.engine.CommuneDetail(r.Context(), commune, year, f.Sector())
	if err != nil {
		h.writeError(w, r, err, fmt.Sprintf("Aucune donnée pour la commune %s", commune))
		return
	}
	addServerTiming(w, timing("stats", start))

	writeJSON(w, http.StatusOK, pancarte{
		Nom: d.Zone.CommuneName,
		Localisation: localisation{
			Departement: d.Zone.DepartmentName,
			Region:      d.Zone.RegionName,
			Pcode:       d.Zone.CommuneCode,
		},
		Statistiques: statistiques{
			TonnageTotal:          d.TotalTonnage,
			ContributionNationale: percentLabel(d.PctNational),
			Rangs: rangs{
				National:      d.RankNational,
				Regional:      d.RankRegional,
				Departemental: d.RankDepartmental,
			},
		},
		FiliereInfo:    filiereInfo{Nom: d.Sector, Annee: rawYear},
		ProduitsDetail: d.Products,
	})
}

// GlobalStats summarises a (year, filiere) scope, optionally narrowed to a
// product, a region or a department.
func (h *Handler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	f, err := stats.NewFilterSpec(paramsFrom(r))
	if err == nil {
		err = f.RequireScope()
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Année et Filière obligatoires")
		return
	}

	start := time.Now()
	s, err := h.engine.Summarize(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err, "Aucune donnée")
		return
	}
	addServerTiming(w, timing("stats", start))
	writeJSON(w, http.StatusOK, s)
}

type addResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// AddProduction appends a production for an existing commune, copying its
// geometry and hierarchy.
func (h *Handler) AddProduction(w http.ResponseWriter, r *http.Request) {
	var in production.NewProduction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Corps de requête invalide")
		return
	}
	in.SourceCommune = strings.TrimSpace(in.SourceCommune)
	if in.SourceCommune == "" {
		writeMessage(w, http.StatusBadRequest, "source_commune est requise")
		return
	}
	if in.Tonnage != nil && *in.Tonnage < 0 {
		writeMessage(w, http.StatusBadRequest, "tonnage doit être positif")
		return
	}

	id, err := h.writer.AddFromTemplate(r.Context(), in)
	if errors.Is(err, production.ErrCommuneNotFound) {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("La commune %s n'existe pas", in.SourceCommune))
		return
	}
	if err != nil {
		h.writeError(w, r, stats.StoreFailure(err), "")
		return
	}

	h.log.WithRequest(r).WithField("id", id).WithField("commune", in.SourceCommune).Info("production added")
	writeJSON(w, http.StatusCreated, addResponse{
		Message: fmt.Sprintf("Nouvelle production ajoutée pour %s", in.SourceCommune),
		ID:      id,
	})
}
