// Package config provides configuration structures and utilities for
// sitesage. It defines crawl bounds, chunking policy, external service
// settings, cache behavior, and report generation preferences.
package config
