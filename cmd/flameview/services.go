package main

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"

	"github.com/flachnetz/alwaysprofile/internal/httputil"
	"github.com/flachnetz/alwaysprofile/internal/metrics"
	"github.com/flachnetz/alwaysprofile/internal/quantile"
	"github.com/flachnetz/alwaysprofile/internal/speedscope"
	"github.com/flachnetz/alwaysprofile/internal/stackapi"
	"github.com/flachnetz/alwaysprofile/internal/transform"
)

type (
	servicesResponse struct {
		Services []string `json:"services"`
	}

	histogramResponse struct {
		Bins []stackapi.HistogramBin `json:"bins"`
		// distribution of the sampled duration per instance and time slot
		Duration quantile.Quantiles `json:"duration"`
	}
)

func (env *environment) getServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	services := []string{}
	if env.stacks != nil {
		var err error
		services, err = env.stacks.Services(ctx)
		if err != nil {
			writeError(w, hub, err)
			return
		}
	}

	writeJSON(ctx, w, hub, servicesResponse{Services: services})
}

func (env *environment) getHistogram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	if env.stacks == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	bins, err := env.stacks.Histogram(ctx, ps.ByName("service"))
	if err != nil {
		writeError(w, hub, err)
		return
	}
	if bins == nil {
		bins = []stackapi.HistogramBin{}
	}
	durations := lo.Map(bins, func(b stackapi.HistogramBin, _ int) float64 {
		return b.Duration
	})

	writeJSON(ctx, w, hub, histogramResponse{Bins: bins, Duration: quantile.Summarize(durations)})
}

func (env *environment) getSpeedscope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	service := ps.ByName("service")

	cfg, err := transform.ParseSteps(r.URL.Query().Get("transforms"))
	if err != nil {
		writeError(w, hub, err)
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

	writeJSON(ctx, w, hub, speedscope.FromTree(service, result.Tree, env.config.ApplicationPrefixes...))
}

// getCalls returns the call table sorted by self time, or by total time with
// sort=total.
func (env *environment) getCalls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	cfg, err := transform.ParseSteps(r.URL.Query().Get("transforms"))
	if err != nil {
		writeError(w, hub, err)
		return
	}
	limit, ok := httputil.GetOptionalUint64(w, r, "limit")
	if !ok {
		return
	}
	order := r.URL.Query().Get("sort")
	if order != "" && order != "self" && order != "total" {
		http.Error(w, "invalid sort query parameter", http.StatusBadRequest)
		return
	}

	raw, err := env.loadStacks(ctx, ps.ByName("service"), false)
	if err != nil {
		writeError(w, hub, err)
		return
	}
	result, err := env.process(ctx, raw, cfg)
	if err != nil {
		writeError(w, hub, err)
		return
	}

	calls := result.Calls
	if order == "total" {
		// the result is shared, sort a copy
		calls = append([]metrics.Call(nil), calls...)
		metrics.SortByTotalTime(calls)
	}
	if limit > 0 {
		calls = metrics.Top(calls, int(limit))
	}

	writeJSON(ctx, w, hub, metrics.ToRows(calls, env.config.ApplicationPrefixes...))
}
