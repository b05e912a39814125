package main

import "tourrag/internal/cli"

func main() {
	cli.Execute()
}
