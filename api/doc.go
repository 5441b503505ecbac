// Package api defines the wire types and endpoint paths shared between the
// HTTP handlers and their typed clients: certificate enrollment against the
// CA endpoint and configuration/signing against the remote signing service.
package api
