package main

import "parley/cmd/parley/cmd"

func main() {
	cmd.Execute()
}
