// Package metrics provides observability hooks for mobilebuild runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so call sites never check for nil:
//
//	type Builder struct {
//	    recorder metrics.Recorder
//	}
//
//	b := builder.New(cfg, svc, builder.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation can be scraped through HTTPHandler (the watch
// command) or dumped once per run with WriteTextfile for a node_exporter
// textfile collector (the build command).
package metrics
