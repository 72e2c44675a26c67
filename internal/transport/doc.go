// Package transport builds the outbound HTTP clients used to reach
// generation backends.
//
// Requests go direct by default. When an egress proxy is configured, every
// connection is tunnelled through a SOCKS5 proxy, which lets deployments
// inside locked-down networks reach public model gateways. CheckProxy
// verifies the proxy speaks SOCKS5 before the first analysis is attempted.
package transport
