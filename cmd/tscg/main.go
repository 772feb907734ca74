// Command tscg analyzes a TypeScript project and maintains its call-graph
// snapshot store: measure runs the pipeline, inspect queries a committed
// snapshot, manage diff compares two, and assess reports resolution-level
// confidence summaries.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
