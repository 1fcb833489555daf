/*
Package session implements host-side management of debugging sessions.

The engine is pure: every operation takes a State and returns a new one. A
host that serves several clients keeps one State per session in a
ports.StateStore and must serialise the operations applied to it. Manager
does both, holding a reference-counted lock per session so that concurrent
requests on the same session observe each other's results in order.
*/
package session
