// Package model holds the shared value types of the KV block cache:
// block handles and lookup results. It exists so the engine and the public
// facade can exchange these without depending on each other.
package model
