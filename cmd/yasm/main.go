// Command yasm renders and replays state machine definitions.
package main

import "os"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
