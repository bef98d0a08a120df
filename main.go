package main

import "github.com/jfmyers9/adaptive-eq/cmd"

func main() {
	cmd.Execute()
}
