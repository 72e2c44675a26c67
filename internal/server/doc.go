// Package server exposes the analysis pipeline over HTTP.
//
// Routes:
//
//	GET  /health       liveness probe, always {"status":"ok"}
//	POST /analyze      multipart upload, JSON report
//	POST /analyze/pdf  multipart upload, PDF report
//
// The upload form carries one or more "files" parts plus the optional
// classification fields dd_type, report_focus and checklist_type.
//
// Error responses are JSON objects of the form {"error": "..."}. The
// message is chosen by the handler and never includes the underlying
// error text, so backend credentials and internal details stay in the
// server log.
package server
