package main

import "github.com/takumiyoshikawa/jsonsynth/cmd/jsonsynth/commands"

func main() {
	commands.Execute()
}
