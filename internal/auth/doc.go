// Package auth is the identity and access-control core of the clinic
// management system. It implements:
//   - credential verification with per-account brute-force lockout
//   - dual-token sessions (signed access JWT + rotated refresh token)
//   - a route-level role hierarchy with implicit inheritance
//   - resource-level permission rules for user management, including the
//     asymmetric staff carve-out (staff administer dentists and patients only)
//
// Persistence and the token blacklist are consumed through small interfaces
// (AccountDirectory, RefreshTokenStore, AccessTokenBlacklist) so the engine
// can be exercised without a database. Blacklist and refresh-token lookups
// are tri-state: a store that is unreachable is distinguished from a record
// that does not exist, and only genuine unavailability fails open.
package auth
