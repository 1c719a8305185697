// Package ratelimit provides fixed-window request limiters for the public
// auth endpoints.
//
// Two backends exist: an in-process map (single instance deployments) and a
// Redis counter shared by every API replica. The Redis limiter fails open: if
// Redis is unreachable the request is allowed and the error is logged.
package ratelimit
