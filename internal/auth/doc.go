// Package auth provides authentication and authorisation for the campus portal.
//
// It implements a three-role model (STUDENT, FACULTY, ADMIN) with:
//   - bcrypt password hashing at a fixed work factor
//   - HS256 bearer tokens binding user id, email and role for a fixed window
//   - Per-request resolution of the live user behind a token
//   - A static permission-to-role policy (compile-time, no database lookup)
//
// Tokens are not stored and cannot be revoked before expiry. Rotating the
// signing secret invalidates every outstanding token at once.
//
// The request gate works from the live user record, so a deleted account is
// rejected immediately. The role inside an issued token can go stale for at
// most the token lifetime; handlers always see the role from the store.
//
// Authorisation is per-route by role only. There are no ownership checks:
// any authenticated user holding a permission may exercise it on any record.
package auth
