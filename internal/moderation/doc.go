// Package moderation talks to the external comment moderation service. It
// defines the wire contract ({"comment": ...} in, {"final_flagged": ...} out),
// classifiers for the HTTP and NATS transports, and the keyword rule used by
// the local development stand-in.
package moderation
