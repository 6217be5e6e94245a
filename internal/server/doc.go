// Package server hosts the Fiber HTTP service and request middleware chain
// for the search API. It bootstraps Fiber with recovery, CORS, and request-ID
// middlewares, and owns the shared upstream http.Client that the Brave client
// and infobox resolver reuse. Route handlers live in the routes subpackage so
// that main can wire explicit dependencies instead of globals. Keep exports
// narrow; future phases may add TLS or admin surfaces here.
package server
