// The main package for the boothcrawl executable.
package main

import (
	"github.com/kaykas/booth-beacon-app-sub000/cmd"
)

func main() {
	cmd.Execute()
}
