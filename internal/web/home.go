package web

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/core"
	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

type homePage struct {
	basePage
	Catalog      core.CatalogState
	CatalogError string
	Roads        []roadCard
}

type roadCard struct {
	Road          models.Road
	Expanded      bool
	Segments      []models.RoadSegment
	SegmentsError string
	ToggleURL     string
	ReportURL     string
}

// home lists every road; ?expand=<id> (repeatable) shows a road's segments.
// It also completes OAuth sign-ins, which return here with ?code= or ?error=.
func (s *Site) home(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	q := r.URL.Query()
	if code := q.Get("code"); code != "" {
		s.completeProviderSignIn(pc, code, q.Get("next"))
		return
	}

	catalog := core.NewCatalogLoader(pc.client, s.logger)
	state := catalog.LoadRoads(r.Context())

	expanded := parseExpanded(q["expand"])
	var segments map[int]core.SegmentResult
	if state.Loaded && len(expanded) > 0 {
		segments = catalog.LoadSegmentsFor(r.Context(), expanded)
	}

	page := homePage{basePage: pc.base(""), Catalog: state}
	if state.Failed {
		page.CatalogError = "Couldn't load road conditions. Please try again."
		if apperrors.Is(state.Err, apperrors.KindTimeout) {
			page.CatalogError = "The road service did not respond in time. Please try again."
		}
	}
	for _, road := range state.Roads {
		card := roadCard{
			Road:      road,
			Expanded:  slices.Contains(expanded, road.ID),
			ToggleURL: toggleExpandURL(expanded, road.ID),
			ReportURL: core.ReportPath(road.ID),
		}
		if result, ok := segments[road.ID]; ok {
			card.Segments = result.Segments
			if result.Err != nil {
				card.SegmentsError = apperrors.Message(result.Err, "Couldn't load road details.")
			}
		}
		page.Roads = append(page.Roads, card)
	}

	pc.render(http.StatusOK, pageHome, page)
}

// completeProviderSignIn trades the one-time code from the OAuth callback for a session
func (s *Site) completeProviderSignIn(pc *pageContext, code, next string) {
	if _, err := pc.client.Auth.ExchangeCode(pc.r.Context(), code); err != nil {
		s.logger.Warn("failed to exchange sign-in code", zap.Error(err))
		pc.redirectWithMessage(loginURL(core.SafeNext(next)), "error", "exchange_failed")
		return
	}
	pc.redirect(core.SafeNext(next))
}

func parseExpanded(values []string) []int {
	var ids []int
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// toggleExpandURL returns the home page with roadID's details flipped
func toggleExpandURL(expanded []int, roadID int) string {
	q := url.Values{}
	found := false
	for _, id := range expanded {
		if id == roadID {
			found = true
			continue
		}
		q.Add("expand", strconv.Itoa(id))
	}
	if !found {
		q.Add("expand", strconv.Itoa(roadID))
	}
	if len(q) == 0 {
		return core.HomePath
	}
	return core.HomePath + "?" + q.Encode()
}
