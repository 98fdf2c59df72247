package main

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/flachnetz/alwaysprofile/internal/flamegraph"
	"github.com/flachnetz/alwaysprofile/internal/httputil"
	"github.com/flachnetz/alwaysprofile/internal/metrics"
	"github.com/flachnetz/alwaysprofile/internal/nodetree"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/timeutil"
	"github.com/flachnetz/alwaysprofile/internal/transform"
)

type (
	postFlamegraphBody struct {
		Stacks     []sample.RawStack `json:"stacks"`
		Transforms []transform.Step  `json:"transforms"`
		flamegraph.ViewState

		// Layout returned for the previous request, used to animate nodes
		// from their old position.
		Previous flamegraph.Layout `json:"previous,omitempty"`
	}

	flamegraphResponse struct {
		TotalMS float64           `json:"total_ms"`
		Total   string            `json:"total"`
		Calls   []metrics.Row     `json:"calls"`
		Tree    *nodetree.Node    `json:"tree"`
		Layout  flamegraph.Layout `json:"layout"`
	}
)

func newFlamegraphResponse(r *flamegraph.Result, l flamegraph.Layout, applicationPrefixes []string) flamegraphResponse {
	return flamegraphResponse{
		TotalMS: timeutil.Millis(r.Total),
		Total:   timeutil.FormatDuration(r.Total),
		Calls:   metrics.ToRows(r.Calls, applicationPrefixes...),
		Tree:    r.Tree,
		Layout:  l,
	}
}

func (env *environment) postFlamegraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	var body postFlamegraphBody
	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Decoding data"
	err := json.NewDecoder(r.Body).Decode(&body)
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result, err := env.process(ctx, body.Stacks, transform.Config{Steps: body.Transforms})
	if err != nil {
		writeError(w, hub, err)
		return
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Compute layout"
	layout, err := env.view.Layout(result.Tree, body.ViewState, body.Previous)
	s.Finish()
	if err != nil {
		writeError(w, hub, err)
		return
	}

	writeJSON(ctx, w, hub, newFlamegraphResponse(result, layout, env.config.ApplicationPrefixes))
}

func (env *environment) getFlamegraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	service := ps.ByName("service")

	if hub != nil {
		hub.Scope().SetTag("service", service)
	}

	cfg, err := transform.ParseSteps(r.URL.Query().Get("transforms"))
	if err != nil {
		writeError(w, hub, err)
		return
	}
	selected, ok := httputil.GetOptionalUint64(w, r, "selected")
	if !ok {
		return
	}
	previous, ok := httputil.GetOptionalUint64(w, r, "previous")
	if !ok {
		return
	}
	minSize, ok := httputil.GetOptionalFloat(w, r, "min_size", env.config.MinSize)
	if !ok {
		return
	}

	raw, err := env.loadStacks(ctx, service, false)
	if err != nil {
		writeError(w, hub, err)
		return
	}
	result, err := env.process(ctx, raw, cfg)
	if err != nil {
		writeError(w, hub, err)
		return
	}

	var previousLayout flamegraph.Layout
	if r.URL.Query().Has("previous") {
		previousLayout = env.previousLayout(result.Tree, flamegraph.ViewState{Selected: previous, MinSize: minSize})
	}

	layout, err := env.view.Layout(result.Tree, flamegraph.ViewState{Selected: selected, MinSize: minSize}, previousLayout)
	if err != nil {
		writeError(w, hub, err)
		return
	}

	writeJSON(ctx, w, hub, newFlamegraphResponse(result, layout, env.config.ApplicationPrefixes))
}

// previousLayout recomputes the layout of the state the client navigates
// away from. The state may refer to a tree that no longer exists, the new
// layout is then returned without previous positions.
func (env *environment) previousLayout(tree *nodetree.Node, state flamegraph.ViewState) flamegraph.Layout {
	l, err := env.view.Layout(tree, state, nil)
	if err != nil {
		if !errors.Is(err, flamegraph.ErrNodeNotInTree) {
			log.Err(err).Msg("error computing previous layout")
		}
		return nil
	}
	return l
}
