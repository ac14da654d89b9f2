// Package http serves the chaos mock API.
//
// Resource routes under /api pass through the chaos engine, which may fail,
// delay, hang or corrupt them according to the live settings. Control routes
// (/settings, /settings/presets, /settings/reset) are never subject to chaos;
// every change they make is broadcast to websocket observers.
package http
