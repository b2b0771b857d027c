// Package main is the entry point for the intensityctl CLI.
package main

import "example.com/intensity/internal/cli"

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	cli.Execute(version)
}
