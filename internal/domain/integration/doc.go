// Package integration contains the QuickBooks Online integration context.
//
// Key concepts:
//   - QuickBooksGateway: port for pushing financial documents to QuickBooks
//   - Mapping: link between a local record and its QuickBooks entity
//   - SyncLogEntry: outcome of one sync attempt (success, skipped, failed)
//   - APILogEntry: sanitized trace of one outbound QuickBooks API call
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
