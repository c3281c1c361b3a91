package main

import "gmailbridge/cmd"

// version is set via ldflags at release build time
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
