package main

import "github.com/quangmanh-dev/webscan/cmd"

// execCmd is swappable in tests.
var execCmd = cmd.Execute

func main() {
	execCmd()
}
