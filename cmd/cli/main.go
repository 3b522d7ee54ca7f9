package main

import "egotalk/cmd/cli/command"

func main() {
	command.Execute()
}
