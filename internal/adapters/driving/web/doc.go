// Package web serves SpecForge over HTTP with gin.
//
// Two groups of endpoints exist. The stateless proxy (/api/chat,
// /api/verify) takes the whole context in the request body and relays the
// model stream. Session endpoints (/api/sessions/...) run the same
// operations against stored sessions and keep verifier state server-side.
//
// Streaming responses use server-sent events: each text delta is sent as
// data: {"text": "..."} and the stream ends with data: [DONE]. Session
// streams send an "event: result" frame carrying the final outcome before
// [DONE]; a failure after streaming began is sent as "event: error".
package web
