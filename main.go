package main

import "note-sync/cmd"

func main() {
	cmd.Execute()
}
