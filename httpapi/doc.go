// Package httpapi exposes labauth.Service over HTTP/JSON.
//
// Routes:
//
//	POST   /auth/signup
//	POST   /auth/login
//	POST   /auth/refresh
//	POST   /auth/logout
//	GET    /auth/me
//	DELETE /auth/me
//	GET    /auth/me/events
//	DELETE /auth/accounts/{id}
//	GET    /healthz
//
// Failures are written as {"code": "...", "message": "..."} with one status
// per code. Messages are fixed per code and never include internal detail.
package httpapi
