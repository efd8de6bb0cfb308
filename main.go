package main

import "LiveFM/cmd"

func main() {
	cmd.Execute()
}
