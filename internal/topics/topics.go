// Package topics defines the bus topic names shared by the websocket
// layer and the feature modules. Keeping them in one place prevents the
// string-drift bugs that show up when every package invents its own.
package topics

const (
	// ClientConnected is published by the websocket bridge when a
	// connection has been accepted and its pumps are running.
	ClientConnected = "ws.client.connected"
	// ClientDisconnected is published by the websocket bridge when a
	// connection goes away, for any reason.
	ClientDisconnected = "ws.client.disconnected"

	// FrameBroadcast carries an outbound wire frame destined for every
	// connected client. The websocket bridge is the only subscriber.
	FrameBroadcast = "ws.frame.broadcast"
	// FrameDirect carries an outbound wire frame for a single
	// connection, named by the MetaRecipient metadata key.
	FrameDirect = "ws.frame.direct"

	// ChatClientRegister is published when a client announces itself
	// with a register frame.
	ChatClientRegister = "chat.client.register"
	// ChatMessageInbound is published for each chat message received
	// from a client, before rendering or persistence.
	ChatMessageInbound = "chat.message.inbound"

	// RosterSnapshot carries the full list of registered user names.
	// Snapshots replace each other wholesale; there is no merging.
	RosterSnapshot = "roster.snapshot"
)

// MetaRecipient is the metadata key naming the target connection of a
// direct frame on the FrameDirect topic.
const MetaRecipient = "recipient"

// MetaConnectionID is the metadata key carrying the websocket connection
// ID on lifecycle events.
const MetaConnectionID = "connection_id"
