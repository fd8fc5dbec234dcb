package main

import "github.com/bryanchriswhite/ActionShot/cmd/actionshot/commands"

func main() {
	commands.Execute()
}
