// Command tinyml runs the emulated on-device digit classifier and its
// diagnostics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tinyml:", err)
		os.Exit(1)
	}
}
