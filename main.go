// Package main is the entry point for the esalytics CLI, which parses CS2
// demos of professional matches and serves the analytics dashboard.
package main

import "github.com/pable/go-cs-esalytics/cmd"

func main() {
	cmd.Execute()
}
