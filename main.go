package main

import "example.com/rfidscan/cmd"

func main() {
	cmd.Execute()
}
