// Package ws pushes real-time frames to connected dashboards.
//
// The protocol is one-way. Every server-to-client message is a JSON Frame:
//
//	{"event": "settings-updated", "data": {...}}
//
// A new observer first receives the frame produced by the OnConnect
// greeting, then every frame passed to Publish. Messages sent by clients are
// read and discarded.
//
// Example Usage:
//
//	hub := ws.NewHub(logger, metrics)
//	hub.OnConnect(func() ws.Frame { return ws.Frame{Event: "settings-updated", Data: store.Snapshot()} })
//	router.GET("/socket", hub.HandleConnection)
package ws
