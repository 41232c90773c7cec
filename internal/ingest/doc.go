// Package ingest accepts device telemetry connections.
//
// Each websocket connection becomes a Session owned by the Hub. A session
// reads frames, queues them in a bounded mailbox and hands them, in
// arrival order, to a FrameHandler (normally telemetry.Processor) on its
// own worker goroutine. The only frame a session ever writes is the
// greeting, sent once shortly after the connection opens.
//
// Bridge feeds frames published on MQTT telemetry topics through the
// same FrameHandler.
package ingest
