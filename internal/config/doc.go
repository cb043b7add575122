// Package config holds the crawl configuration, its validation and the
// optional per-site YAML file (.coursecrawl).
package config
