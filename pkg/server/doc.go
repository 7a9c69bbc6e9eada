// Package server provides the HTTP server that hosts the kiln API.
//
// A Server wraps every API route in a middleware chain:
//
//	metrics -> version -> request ID -> panic recovery -> rate limit -> body limit -> logging
//
// System endpoints bypass the chain:
//
//	GET /health   liveness
//	GET /ready    readiness; 503 until the listener is up and during shutdown
//	GET /metrics  Prometheus metrics
//
// A root handler listing the routes is registered unless the caller supplies
// one for "/".
//
// # Usage
//
//	s := server.New(
//	    server.WithName("kiln"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/graph": h.HandleGraph,
//	    }),
//	)
//	err := s.Run(ctx)
//
// Run blocks until SIGINT, SIGTERM or ctx cancellation and then shuts down
// within Config.ShutdownTimeout.
//
// # Errors
//
// Errors are written as ErrorResponse JSON bodies carrying the request ID.
// WriteErrorFromErr maps a StructuredError code to the HTTP status:
// INVALID_REQUEST and UNKNOWN_OPTION to 400, NOT_FOUND to 404,
// VERSION_CONFLICT to 409, DEPENDENCY_CYCLE and RECIPE_EVALUATION to 422,
// RATE_LIMIT_EXCEEDED to 429, TIMEOUT to 504 and everything else to 500.
//
// # Configuration
//
// NewConfig reads PORT and SHUTDOWN_TIMEOUT_SECONDS from the environment.
// Clients may request an API version with an Accept header such as
// "application/vnd.kiln.v1+json"; the negotiated version is echoed in
// X-API-Version.
package server
