package main

import "github.com/NitronPlus/hostpilot/cmd"

func main() {
	cmd.Execute()
}
