package main

import "github.com/reservehq/reserve-personnel/cmd"

func main() {
	cmd.Execute()
}
