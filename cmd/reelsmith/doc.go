// Command reelsmith produces video content artifacts from the terminal.
//
// The produce command runs every pipeline stage for one topic in a single
// process and prints the resulting metadata, scenes, and credential usage.
// The keys, genres, config, and test-notify commands cover administration.
package main
