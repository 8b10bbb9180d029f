// Command locate runs a one-off location analysis against a layer catalog.
//
// Usage:
//
//	locate analyze --catalog layers.yaml --input stores.csv \
//	  --type address --address-column Address --format yaml
//	locate layers --catalog layers.yaml
//
// Every flag can also be set through a LOCATE_ environment variable, for
// example LOCATE_MAPBOX_TOKEN or LOCATE_CATALOG.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
