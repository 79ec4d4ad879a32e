// Package console serves the browser front end of the template generator: an
// embedded single page, a JSON API described by api/openapi.yaml, per-session
// result storage, and the download and save endpoints.
package console
