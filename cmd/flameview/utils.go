package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/flachnetz/alwaysprofile/internal/errorutil"
	"github.com/flachnetz/alwaysprofile/internal/flamegraph"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/storageutil"
	"github.com/flachnetz/alwaysprofile/internal/transform"
)

// statusFor maps an error to the status code returned to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errorutil.ErrDataIntegrity), errors.Is(err, transform.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, errorutil.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, errorutil.ErrNoResults), errors.Is(err, storageutil.ErrObjectNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError reports unexpected errors to sentry and writes the status
// matching err. Client errors carry their message in the body.
func writeError(w http.ResponseWriter, hub *sentry.Hub, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusConflict {
		if hub != nil {
			hub.CaptureException(err)
		}
	}
	if status == http.StatusInternalServerError {
		w.WriteHeader(status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, hub *sentry.Hub, v interface{}) {
	s := sentry.StartSpan(ctx, "json.marshal")
	defer s.Finish()
	b, err := json.Marshal(v)
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// loadStacks returns the stack snapshot of the service. Without a snapshot,
// or with refresh set, the stacks are fetched from the stack service and
// stored as the new snapshot.
func (e *environment) loadStacks(ctx context.Context, service string, refresh bool) ([]sample.RawStack, error) {
	var raw []sample.RawStack
	if !refresh {
		s := sentry.StartSpan(ctx, "storage.read")
		s.Description = "Read stack snapshot"
		err := storageutil.UnmarshalCompressed(s.Context(), e.storage, storageutil.StacksPath(service), &raw)
		s.Finish()
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, storageutil.ErrObjectNotFound) {
			return nil, err
		}
	}

	if e.stacks == nil {
		return nil, fmt.Errorf("%w: no stacks for service %q", errorutil.ErrNoResults, service)
	}
	raw, err := e.stacks.Stacks(ctx, service)
	if err != nil {
		return nil, err
	}

	s := sentry.StartSpan(ctx, "storage.write")
	s.Description = "Write stack snapshot"
	err = storageutil.CompressedWrite(s.Context(), e.storage, storageutil.StacksPath(service), raw)
	s.Finish()
	if err != nil {
		// the stacks are still usable, the next request fetches them again
		log.Err(err).Str("service", service).Msg("error writing stack snapshot")
	}
	return raw, nil
}

// process interns the raw stacks and runs them through the view.
func (e *environment) process(ctx context.Context, raw []sample.RawStack, cfg transform.Config) (*flamegraph.Result, error) {
	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Build flame tree"
	defer s.Finish()

	stacks, err := sample.FromRaw(e.view.Registry(), raw)
	if err != nil {
		return nil, err
	}
	return e.view.Process(stacks, cfg)
}
