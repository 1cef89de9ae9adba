package main

import "upgrade-tracker/cmd"

func main() {
	cmd.Execute()
}
