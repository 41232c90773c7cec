// Package auth verifies bearer tokens for the VenueWatch HTTP API.
//
// Tokens are HS256 JWTs issued outside this service. Each carries a
// subject and one of two roles: viewer may read alerts, locations and
// devices; admin may also register, change and remove devices.
// Permissions are a static role mapping with no database lookup.
package auth
