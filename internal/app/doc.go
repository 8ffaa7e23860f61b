// Package app wires the dashboard together and manages its lifecycle.
//
// NewApplication resolves paths, initializes OpenTelemetry and builds the
// services, the websocket hub and the chi router. PrepareData loads the
// processed dataset, optionally running the pipeline first. Run serves
// until SIGINT, SIGTERM or context cancellation and then shuts down:
//
//	a, err := app.NewApplication(cfg, logger, app.Options{})
//	if err != nil {
//	    return err
//	}
//	a.PrepareData(ctx, cfg.Dashboard.ProcessIfMissing)
//	return a.Run(ctx)
//
// Dataset reloads, whether from a pipeline run or a file change, flush the
// figure cache and are broadcast to connected browsers.
package app
