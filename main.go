package main

import "github.com/twiced-technology-gmbh/trackle/cmd"

func main() {
	cmd.Execute()
}
