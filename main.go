package main

import "github.com/kudige/codex/cmd"

func main() {
	cmd.Execute()
}
