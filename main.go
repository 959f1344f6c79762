package main

import "github.com/doclantern/doclantern/cmd"

func main() {
	cmd.Execute()
}
