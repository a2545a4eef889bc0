// Package memory provides in-process implementations of labauth.AccountStore
// and labauth.AuditLog for tests and local development.
package memory
