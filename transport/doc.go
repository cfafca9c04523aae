// Package transport describes the parts of a Wayland client connection the
// platform needs: private event queues, the global registry, round trips and
// the protocol objects bound from it.
//
// Implementations wrap a real client library; events are delivered to the
// registered listeners while Roundtrip runs, on the calling goroutine.
package transport
