// Package services implements the business logic between the HTTP handlers
// and the pipeline.
//
// DatasetService keeps the unified table in memory and answers the four
// dashboard figure queries. It reloads on demand, after a pipeline run, or
// when the processed file changes on disk.
//
// PipelineService runs the ETL through the operations manager, and
// HealthService reports liveness and readiness. FigureCache holds rendered
// figures until the next reload.
package services
