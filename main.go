package main

import "github.com/KaramelBytes/datask-cli/cmd"

func main() {
	cmd.Execute()
}
