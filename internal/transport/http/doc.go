// Package http provides the HTTP transport layer for the licensing
// service. Handlers are thin adapters over the services layer: they
// bind and validate requests, call the service, and render responses
// or RFC 7807 problem details. Routing uses chi with per-handler
// Routes() methods mounted by the application.
package http
