// Package web implements an HTMX-based web application mirroring the TUI functionality.
//
// # HTMX Web Application Implementation Plan
//
// # Architecture
//
// The web app replicates the five-view TUI workflow using server-side rendering
// with HTMX for dynamic updates. Each view corresponds to a template and handler:
//
//  1. Playlist List: Server-rendered table with hx-get for sync preview
//  2. Sync Preview: HTMX partial swap showing the planned change set + sync button
//  3. Sync Confirm: Modal confirmation with hx-post trigger
//  4. Progress Monitor: SSE (Server-Sent Events) streaming reconciliation phases
//  5. Results Display: Pass summary with added/removed/deduplicated counts
//
// Core Components
//
//   - HTTP Server: reuses internal/server's BasicRouter, Logging middleware and ops endpoints
//   - Engine Integration: Uses the same tasks.Engine and queue as the TUI
//   - Session Management: Cookie-based sessions for OAuth state
//   - SSE Handler: Streams tasks.ProgressUpdate events during passes
//
// Routes
//
//	GET  /                    → Playlist list view (requires auth)
//	GET  /auth/login          → OAuth initiation
//	GET  /callback            → OAuth completion (shared with the CLI flow)
//	GET  /playlists/{id}      → HTMX partial: preview of the change set
//	POST /sync/{id}           → Queue a reconciliation, return run ID
//	GET  /sync/{id}/stream    → SSE progress stream
//	GET  /sync/{id}/result    → Final result view backed by the audit trail
//
// Templates
//
//   - base.html: Layout with navigation, auth status
//   - playlists.html: Table with hx-get on rows
//   - preview.html: Partial template for the planned additions and removals
//   - progress.html: SSE consumer with a per-phase progress bar
//   - results.html: Summary plus manual-action and data-loss notices
//
// # State Management
//
// Unlike the TUI's in-memory state, the web app persists state in:
//   - Session cookies: Authentication tokens
//   - SyncRun records: The audit trail already written by the engine
//   - In-memory channels: SSE connections for passes in flight
//
// # Progress Streaming
//
// Reconciliation progress uses Server-Sent Events:
//  1. POST /sync/{id} calls Engine.EnqueueReconcile with a fresh progress channel
//  2. Client opens SSE connection to /sync/{id}/stream
//  3. Handler forwards channel updates as SSE events
//  4. On Done, send a "done" event with the result URL
//
// Authentication Flow
//
//  1. User visits /, redirected to /auth/login if not authenticated
//  2. OAuth dance stores tokens in session
//  3. Session middleware validates tokens on protected routes
//  4. Expired tokens trigger reauthorization flow
//
// Dependencies
//
//   - html/template: Server-side rendering
//   - internal/server: Router, logging middleware, /health and /metrics
//   - gorilla/sessions or similar: Cookie management
//
// Implementation Tasks
//
//  1. Route registration on a BasicRouter
//  2. Template structure with HTMX integration
//  3. Session middleware for auth state
//  4. Playlist list handler backed by Engine.Playlists
//  5. Preview handler (HTMX partial) backed by Engine.Preview
//  6. Sync endpoint wiring EnqueueReconcile
//  7. SSE handler streaming ProgressUpdate events
//  8. Result handler reading the SyncRun audit row
//  9. OAuth handlers wrapping the existing callback flow
//  10. Error handling and validation
//
// # Testing Strategy
//
// Use httptest:
//   - Fake services.Service for remote collection data
//   - In-memory store and engine, the way the tasks tests build them
//   - Validate HTMX headers and response structure
//   - Test SSE stream formatting
package web
