package main

import "graph-store/cmd"

func main() {
	cmd.Execute()
}
