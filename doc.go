// Package backend provides the Waxfeed recommendation server.
//
// The main entry points live under cmd/:
//
//   - cmd/server: HTTP API for random picks, swipe batches, compatibility and feedback
//   - cmd/cli: operator CLI running the engine directly against the database
//   - cmd/seed: development and test data
//   - cmd/migrate: schema migrations
//
// The scoring and selection engine is internal/recommend; it depends only on
// the store interfaces that internal/repository implements over GORM.
package main
