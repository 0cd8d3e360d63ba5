// Command dramcal brings up, calibrates and tests the DRAM behind an FPGA
// memory controller from a host.
package main

import "github.com/sarchlab/dramcal/cmd/dramcal/cmd"

func main() {
	cmd.Execute()
}
