// Package streaming holds the wire plumbing shared by the LLM adapters:
// server-sent event and newline-delimited JSON readers, a TextStream backed
// by an HTTP response body, and a request rate limiter.
package streaming
