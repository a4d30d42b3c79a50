package main

import "github.com/fakeyudi/hookpilot/cmd"

func main() {
	cmd.Execute()
}
