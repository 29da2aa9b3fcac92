package main

import "github.com/LilHomer/pytube/cmd"

func main() {
	cmd.Execute()
}
