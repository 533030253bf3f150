// Package main provides the entry point of nodebb-sync. It receives user, course
// and enrollment events from the learning platform on a webhook, turns them into
// jobs on a retrying queue and mirrors them into a NodeBB forum through its write
// API, keeping the platform to forum id mappings in a gorm database.
package main
