package main

import "github.com/emrgen/suggest/cmd"

func main() {
	cmd.Execute()
}
