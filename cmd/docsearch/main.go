package main

import "docsearch/internal/cli"

func main() {
	cli.Execute()
}
