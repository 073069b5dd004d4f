// Package cli implements the orchestrate command tree.
//
// Commands:
//
//	run       run routines once in dependency order
//	plan      print the execution order without running anything
//	validate  check a policy file
//	serve     HTTP API with hot reload and an optional cron schedule
package cli
