package main

import "github.com/Datta-sai-vvn/StormAlert/internal/cli"

func main() {
	cli.Execute()
}
