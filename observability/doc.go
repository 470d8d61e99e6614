// Package observability provides structured logging and metrics for every
// component of the download coordinator: the serverless API, the local REST
// service and the coordinator loop itself.
//
// A Provider is created once per process and handed to constructors. Each
// component asks it for a Logger and a Metrics by name:
//
//	obs := observability.NewProvider(&observability.Config{
//		ServiceName: "ytdlpro",
//		Environment: "local",
//		LogLevel:    "info",
//	})
//	log := obs.Logger("coordinator")
//	m := obs.Metrics("coordinator")
//
// Loggers write JSON lines. Metrics are Prometheus collectors registered on
// the configured Registerer and served by promhttp in the HTTP binaries.
package observability
