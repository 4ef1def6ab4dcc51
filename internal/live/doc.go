// Package live pushes messages to connected browser sessions over websockets.
//
// A Hub keys connections by username; one user may hold several connections,
// one per open tab. Push is best effort: a user without connections is not an
// error, and a connection whose send buffer is full drops the message.
package live
