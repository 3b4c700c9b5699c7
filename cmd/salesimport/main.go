package main

import "github.com/halverson/salesimport/internal/cli"

func main() {
	cli.Execute()
}
