// Command trailguide runs a trail-guide catalog session against the remote document
// store, either as a JSON HTTP service for a presentation layer or as one-shot commands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
