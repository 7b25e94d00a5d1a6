package api

import (
	"net/http"

	"github.com/bassins/bassins-api/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) SetupRoutes(adminTokenHash string) http.Handler {
	r := chi.NewRouter()

	// Filter lists
	r.Get("/regions", h.ListRegions)
	r.Get("/departements/{region}", h.ListDepartments)
	r.Get("/communes/{dept}", h.ListCommunes)
	r.Get("/annees", h.ListYears)
	r.Get("/filieres", h.ListSectors)
	r.Get("/produits/{filiere}", h.ListProducts)

	// Map layers
	r.Get("/carte/cameroun", h.CountryLayer)
	r.Get("/carte/couche-geo", h.ProductionLayer)
	r.Get("/carte/couche-geo/{zone}", h.ZoneLayer)
	r.Get("/carte/pancarte-details/{commune}", h.CommuneDetails)

	r.Get("/stats/global", h.GlobalStats)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminToken(adminTokenHash))
		r.Post("/productions/add", h.AddProduction)
	})

	return r
}
