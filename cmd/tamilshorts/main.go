package main

import "github.com/forPelevin/tamilshorts/internal/cli"

func main() {
	cli.Main()
}
