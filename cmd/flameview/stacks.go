package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"

	"github.com/flachnetz/alwaysprofile/internal/pprofutil"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/storageutil"
)

func (env *environment) getStacks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	service := ps.ByName("service")

	var refresh bool
	if v := r.URL.Query().Get("refresh"); v != "" {
		var err error
		refresh, err = strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid refresh query parameter", http.StatusBadRequest)
			return
		}
	}

	raw, err := env.loadStacks(ctx, service, refresh)
	if err != nil {
		writeError(w, hub, err)
		return
	}

	writeJSON(ctx, w, hub, raw)
}

// postStacks replaces the snapshot of a service. The body is either a list
// of raw stacks or, with an octet-stream content type, a pprof profile.
func (env *environment) postStacks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	service := ps.ByName("service")

	var raw []sample.RawStack
	var err error
	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Decoding data"
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/octet-stream") {
		raw, err = pprofutil.Read(r.Body)
	} else {
		err = json.NewDecoder(r.Body).Decode(&raw)
	}
	s.Finish()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stacks, err := sample.FromRaw(env.view.Registry(), raw)
	if err != nil {
		writeError(w, hub, err)
		return
	}

	s = sentry.StartSpan(ctx, "storage.write")
	s.Description = "Write stack snapshot"
	err = storageutil.CompressedWrite(s.Context(), env.storage, storageutil.StacksPath(service), sample.ToRaw(sample.Merge(stacks)))
	s.Finish()
	if err != nil {
		writeError(w, hub, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
