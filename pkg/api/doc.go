// Package api provides the HTTP server shell: gin engine setup, request
// logging, controller registration and the admin authentication middleware.
package api
