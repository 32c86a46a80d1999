// Package clientip resolves the address of the caller behind reverse proxies.
//
// Proxy headers can be forged by clients, so a Resolver only reads the headers
// it was told to trust, and takes the rightmost address of a list, the one the
// nearest proxy appended. Deployments without a proxy should pass none.
package clientip
