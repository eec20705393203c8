package main

import "github.com/encodeous/rpl/cmd"

func main() {
	cmd.Execute()
}
