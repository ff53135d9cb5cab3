package main

import "github.com/endorses/gridsync/cmd"

func main() {
	cmd.Execute()
}
