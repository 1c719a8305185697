// Package api implements the HTTP REST API and WebSocket feed for the campus portal.
//
// This package provides:
//   - Register and login endpoints issuing bearer tokens
//   - REST endpoints for materials, events, notices and the forum
//   - Role-gated admin endpoints (user list, audit log)
//   - A WebSocket hub broadcasting newly created content
//   - Middleware stack (request ID, logging, recovery, CORS, body limit, auth)
//
// # Security
//
// Protected routes pass through authMiddleware, which verifies the bearer
// token and loads the live user. Routes that need more than a signed-in user
// add requirePermission, which checks the role policy in package auth.
// WebSocket connections use single-use tickets so the bearer token never
// appears in a URL.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and the audit log are optional. When they are absent the
// corresponding side effects are skipped; requests still succeed.
package api
