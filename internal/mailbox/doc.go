// Package mailbox implements the tagged message channel shared by the
// coordinator and the player processes.
//
// A Mailbox is one FIFO of messages, each carrying an integer tag. Senders
// never block. A receiver names the tag (or set of tags) it wants and blocks
// until a matching message is queued; messages with other tags stay queued
// and invisible to it. Receives take a context so a blocked receiver can be
// interrupted.
//
// TAGS:
//
// Tags 1, 3 and 4 address the coordinator (join, pile exhausted, play). Every
// other tag is a private reply channel whose value is a player id.
//
// REMOTE ACCESS:
//
// Server exposes a Mailbox on GET /mq/{key} as a websocket. Each connection
// belongs to one player (the bearer token subject): inbound frames are sent
// into the mailbox, and messages tagged with that player's id are streamed
// back. Dial returns a Conn with the same Send and Receive methods as the
// Mailbox, backed by a local inbox.
//
// CLOSING:
//
// Close destroys the mailbox. Messages already queued can still be received;
// once none match, Receive returns ErrClosed.
package mailbox
