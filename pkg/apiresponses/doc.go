// Package apiresponses provides standardized JSON response helpers shared
// by all API endpoints.
package apiresponses
