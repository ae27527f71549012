package main

import "github.com/marshallshelly/cinema-seed/cmd/cineseed/commands"

func main() {
	commands.Execute()
}
