package main

import cmd "github.com/rohmanhakim/deck-voice/internal/cli"

func main() {
	cmd.Execute()
}
