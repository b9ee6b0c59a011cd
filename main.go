package main

import "github.com/nextlevelbuilder/jibot/cmd"

func main() {
	cmd.Execute()
}
