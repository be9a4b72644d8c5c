// Package httputil holds the JSON response helpers shared by API handlers.
package httputil
