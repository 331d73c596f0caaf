package main

import "github.com/KaramelBytes/musicmax-cli/cmd"

func main() {
	cmd.Execute()
}
