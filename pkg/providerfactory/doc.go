// Package providerfactory builds the adapter registry that maps API families
// to provider adapters.
package providerfactory
