// Command attila runs the reference signal pipeline and inspects the signal
// traces it writes.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/attila/cmd/attila/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
