package main

import "github.com/ogulcanaydogan/pulse-guardian/internal/cli"

func main() {
	cli.Execute()
}
