// Command slotctl runs the availability rules offline against a resource described in
// a JSON file. It is meant for checking a resource's configuration before loading it.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
