// Package websocket provides the live-update transport for the mowing simulator.
//
// The package uses a hub-and-spoke model: a central Hub tracks the clients
// attached to each session and every connection is served by a read and a
// write goroutine.
//
// Message Protocol:
//
// Outgoing messages are JSON objects with the session id, an event name and
// either a SimulationStatus (state_update) or an event payload
// (cycle_complete, reset). One WebSocket frame carries one message. Incoming
// messages are ignored; the connection only needs to stay open.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastStatus(sessionID, status)
package websocket
