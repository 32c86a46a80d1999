// Package handler provides small Response values and a Wrap adapter that turns a
// func(*http.Request) Response into an http.HandlerFunc.
//
// Redirect switches to a DataStar server-sent event when the client asked for
// an event stream, so the same endpoint serves classic browser navigation and
// DataStar-driven pages.
package handler
