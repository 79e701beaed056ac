/*
Package server implements msgpack IPC for query completion.

The server reads a stream of msgpack encoded requests from stdin and writes one
reply per request to stdout. Logs go to stderr so the stream stays clean.

# IPC

Every message carries an ID which the reply echoes, so a client may keep
several requests in flight and match the answers itself.

Completion requests carry the question prefix in identifier space and the
client's request token:

	{"id": "4f1c...", "op": "complete", "p": "where was [Q7186] bo", "t": 1718000000000, "l": 10}

The reply echoes the token as "ts" next to the results:

	{"id": "4f1c...", "r": [{"c": "...", "w": "...", "a": "", "q": ["Q7186"], "u": [""]}], "c": 1, "ts": 1718000000000, "tt": 85}

Entity info requests name one identifier:

	{"id": "9a0e...", "op": "info", "q": "Q7186"}
	{"id": "9a0e...", "i": {"img": "https://...", "abs": "Polish and naturalised-French physicist..."}}

A "ping" request is answered with an empty reply. Failed requests get "e" and
"code" instead of a payload:

	{"id": "...", "e": "unknown op: shutdown", "code": 400}

# Limits

Prefix length bounds, the largest result count and a token bucket rate limit
are read from the [server] section of the configuration and can be changed
while the server runs. A prefix outside the length bounds, the empty one
included, gets a reply without results rather than an error.

Message types live in pkg/lookup so clients and server share them.
*/
package server

import "github.com/bastiangx/qacbox/pkg/lookup"

type (
	Request = lookup.IPCRequest
	Reply   = lookup.IPCReply
)

// Error codes carried in Reply.Code.
const (
	CodeBadRequest  = 400
	CodeNotFound    = 404
	CodeRateLimited = 429
	CodeInternal    = 500
)
