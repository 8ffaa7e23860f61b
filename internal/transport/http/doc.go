// Package handlers implements the HTTP surface of the climate dashboard.
//
// Handlers are thin: they parse and validate the request, call the services
// layer and render the result with chi/render. Failures are rendered as
// RFC 7807 problem details through the shared errors.ErrorHandler.
//
// # Routes
//
//	GET  /                         dashboard page
//	GET  /demo                     standalone demo page
//	GET  /charts/{figure}.svg      one rendered figure
//	GET  /api/options              dropdown and slider options
//	GET  /api/figures              all four figures as JSON
//	GET  /api/data/download/{name} processed outputs
//	POST /api/pipeline/run         start an ETL run
//	GET  /api/pipeline/status      last run snapshot
//	GET  /api/health[/ready|/live] health checks
//	GET  /ws                       event stream
package handlers
