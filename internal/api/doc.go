// Package api contains the HTTP handlers and error mapping for the
// circulation endpoints. Handlers translate between HTTP and the circulation
// service; all business rules live below this layer.
package api
