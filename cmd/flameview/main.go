package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/flachnetz/alwaysprofile/internal/flamegraph"
	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/httputil"
	"github.com/flachnetz/alwaysprofile/internal/logutil"
	"github.com/flachnetz/alwaysprofile/internal/stackapi"
	"github.com/flachnetz/alwaysprofile/internal/storageprovider"
)

type environment struct {
	config ServiceConfig

	view *flamegraph.View

	// nil when no stack service is configured, snapshots are then only
	// available after an upload.
	stacks *stackapi.Client

	storage storageprovider.Provider
}

var release string

func newEnvironment(ctx context.Context, config ServiceConfig) (*environment, error) {
	e := environment{config: config}

	var err error
	e.view, err = flamegraph.NewView(frame.NewRegistry(), config.CacheSize)
	if err != nil {
		return nil, err
	}
	if config.StackServiceURL != "" {
		c, err := stackapi.NewClient(config.StackServiceURL, stackapi.Options{
			Timeout:    config.StackServiceTimeout,
			RetryCount: config.StackServiceRetries,
		})
		if err != nil {
			return nil, err
		}
		e.stacks = &c
	}
	e.storage, err = storageprovider.Open(ctx, config.StacksBucketURL)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *environment) shutdown() {
	err := e.storage.Close()
	if err != nil {
		sentry.CaptureException(err)
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/flamegraph", e.postFlamegraph},
		{http.MethodGet, "/services", e.getServices},
		{http.MethodGet, "/services/:service/calls", e.getCalls},
		{http.MethodGet, "/services/:service/flamegraph", e.getFlamegraph},
		{http.MethodGet, "/services/:service/histogram", e.getHistogram},
		{http.MethodGet, "/services/:service/speedscope", e.getSpeedscope},
		{http.MethodGet, "/services/:service/stacks", e.getStacks},
		{http.MethodPost, "/services/:service/stacks", e.postStacks},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	return router, nil
}

func main() {
	config, err := readConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error reading configuration")
	}

	logutil.ConfigureLogger(config.LogLevel)

	env, err := newEnvironment(context.Background(), config)
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up environment")
	}

	err = sentry.Init(sentry.ClientOptions{
		BeforeSend:       httputil.SetHTTPStatusCodeTag,
		Dsn:              env.config.SentryDSN,
		EnableTracing:    true,
		Environment:      env.config.Environment,
		Release:          release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	router, err := env.newRouter()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    ":" + env.config.Port,
		Handler: sentryhttp.New(sentryhttp.Options{}).Handle(router),
	}

	waitForShutdown := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	log.Info().Str("port", env.config.Port).Str("environment", env.config.Environment).Msg("server starting")

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
