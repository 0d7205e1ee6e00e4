package main

import "github.com/OpenTraceLab/OpenTracePLD/cmd/brutus/cmd"

func main() {
	cmd.Execute()
}
