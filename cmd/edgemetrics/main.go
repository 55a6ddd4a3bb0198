// Command edgemetrics manages the EdgeMetrics journal's local store and backups.
package main

import "github.com/mesh-intelligence/edgemetrics/internal/cli"

func main() {
	cli.Execute()
}
