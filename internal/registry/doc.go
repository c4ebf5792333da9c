// Package registry maintains the per-account session set and UUID index and
// keeps both consistent with the session backend.
package registry
