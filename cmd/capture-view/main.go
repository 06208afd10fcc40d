package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jnovack/capture-view/pkg/admin"
	"github.com/jnovack/capture-view/pkg/filter"
	"github.com/jnovack/capture-view/pkg/logging"
	"github.com/jnovack/capture-view/pkg/signals"
	"github.com/jnovack/capture-view/pkg/view"
	"github.com/jnovack/flag"
)

var (
	flagLoad       = flag.String("load", "", "flow dump to load at startup")
	flagFilter     = flag.String("filter", "", "filter expression applied to the view")
	flagOrder      = flag.String("order", "time", "view order: time, method, url, size")
	flagReversed   = flag.Bool("reversed", false, "reverse display order")
	flagMarkedOnly = flag.Bool("marked-only", false, "show marked flows only")
	flagAdminAddr  = flag.String("admin-addr", ":8080", "admin HTTP listen address")
	flagLogLevel   = flag.String("log-level", "info", "log level")
)

func main() {
	flag.Parse()
	logging.Setup(*flagLogLevel)

	v := view.New(nil, filter.Parse)
	metrics := admin.NewViewMetrics()
	metrics.Attach(v.Bus())

	if err := v.SetOrderByName(*flagOrder); err != nil {
		log.Fatal().Err(err).Msg("invalid order")
	}
	if *flagFilter != "" {
		if err := v.SetFilterExpr(*flagFilter); err != nil {
			log.Fatal().Err(err).Msg("invalid filter")
		}
	}
	if *flagReversed {
		v.SetReversed(true)
	}
	if *flagMarkedOnly {
		v.ToggleShowMarked()
	}

	if *flagLoad != "" {
		if err := v.LoadFile(*flagLoad); err != nil {
			log.Fatal().Err(err).Str("path", *flagLoad).Msg("failed to load flow dump")
		}
	}
	log.Info().Int("shown", v.Len()).Int("store", v.StoreLen()).Msg("view ready")

	mux := admin.NewMux(v, metrics, map[string]any{
		"load":        *flagLoad,
		"filter":      *flagFilter,
		"order":       *flagOrder,
		"reversed":    *flagReversed,
		"marked-only": *flagMarkedOnly,
	})
	srv := &http.Server{Addr: *flagAdminAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", *flagAdminAddr).Msg("admin HTTP starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("admin HTTP failed")
		}
	}()

	stopCh := make(chan struct{})
	ctx := signals.Setup(stopCh)

	<-ctx.Done()
	log.Info().Msg("shutdown requested")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Info().Msg("capture-view stopped")
}
