// Package websocket pushes server events to dashboard browsers.
//
// The Hub fans out pipeline progress and dataset reload notifications to every
// connected Client. Each client runs a read pump and a write pump; a client
// that falls behind is disconnected rather than slowing the hub.
package websocket
