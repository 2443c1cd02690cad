package main

import "quietude/cmd"

func main() {
	cmd.Execute()
}
