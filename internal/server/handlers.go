package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raphaelgruber/fortroute/internal/metrics"
	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/planner"
	"github.com/raphaelgruber/fortroute/internal/service"
)

type planRequest struct {
	TimeAvailable float64 `json:"time_available" validate:"gte=0"`
	EnergyLevel   string  `json:"energy_level" validate:"omitempty,oneof=low medium high"`
	UseAdaptive   *bool   `json:"use_adaptive"`
}

type interactionRequest struct {
	LocationID       string  `json:"location_id" validate:"required"`
	Clicked          bool    `json:"clicked"`
	Skipped          bool    `json:"skipped"`
	TimeSpentMinutes float64 `json:"time_spent_minutes" validate:"gte=0"`
}

type trackRequest struct {
	LocationID string  `json:"location_id" validate:"required"`
	Minutes    float64 `json:"minutes" validate:"gte=0"`
}

type siteResponse struct {
	models.SiteSummary
	Document models.SiteDocument `json:"document"`
}

type statsResponse struct {
	Backend   string           `json:"backend"`
	VisitorID string           `json:"visitor_id"`
	Metrics   metrics.Snapshot `json:"metrics"`
}

type importResponse struct {
	Interactions  int `json:"interactions"`
	LocationStats int `json:"location_stats"`
}

type rebuildResponse struct {
	Rebuilt int `json:"rebuilt"`
}

func siteParam(r *http.Request) string {
	return chi.URLParam(r, "site")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, statsResponse{
		Backend:   s.svc.Backend(),
		VisitorID: s.svc.VisitorID(),
		Metrics:   s.svc.Stats(),
	})
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.Sites())
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := s.svc.Site(siteParam(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, siteResponse{SiteSummary: site.Summary(), Document: site.Document()})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	useAdaptive := true
	if req.UseAdaptive != nil {
		useAdaptive = *req.UseAdaptive
	}

	result, err := s.svc.Plan(siteParam(r), planner.Request{
		TimeAvailable: req.TimeAvailable,
		Energy:        planner.EnergyLevel(req.EnergyLevel),
		UseAdaptive:   useAdaptive,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	agg, err := s.svc.RecordEvent(r.Context(), models.InteractionEvent{
		SiteID:           siteParam(r),
		LocationID:       req.LocationID,
		Clicked:          req.Clicked,
		Skipped:          req.Skipped,
		TimeSpentMinutes: req.TimeSpentMinutes,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, agg)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Interactions(siteParam(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if events == nil {
		events = []models.InteractionEvent{}
	}
	s.respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleTrack(action service.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trackRequest
		if err := s.decode(w, r, &req); err != nil {
			s.respondError(w, err)
			return
		}

		agg, err := s.svc.Track(r.Context(), siteParam(r), req.LocationID, action, req.Minutes)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respondJSON(w, http.StatusCreated, agg)
	}
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	aggs, err := s.svc.Aggregates(siteParam(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if aggs == nil {
		aggs = []models.LocationAggregate{}
	}
	s.respondJSON(w, http.StatusOK, aggs)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.svc.Analytics(siteParam(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if analytics == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleGetScoring(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.ScoringConfig())
}

func (s *Server) handleUpdateScoring(w http.ResponseWriter, r *http.Request) {
	var update models.ScoringConfigUpdate
	if err := s.decode(w, r, &update); err != nil {
		s.respondError(w, err)
		return
	}
	cfg, err := s.svc.UpdateScoringConfig(r.Context(), update)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.Export())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snap models.StoreSnapshot
	if err := s.decode(w, r, &snap); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.svc.Import(r.Context(), snap); err != nil {
		s.respondError(w, err)
		return
	}

	state := s.svc.Export()
	s.respondJSON(w, http.StatusOK, importResponse{
		Interactions:  len(state.Interactions),
		LocationStats: len(state.LocationStats),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.svc.Reset(r.Context())
	s.respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, rebuildResponse{Rebuilt: s.svc.Rebuild(r.Context())})
}
