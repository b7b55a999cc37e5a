package main

import "github.com/mj1618/wdadash/cmd"

func main() {
	cmd.Execute()
}
