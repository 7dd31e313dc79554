package main

import "stsc/cmd"

func main() {
	cmd.Execute()
}
