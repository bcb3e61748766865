package main

import "github.com/linksim/linksim/internal/cli"

func main() {
	cli.Execute()
}
