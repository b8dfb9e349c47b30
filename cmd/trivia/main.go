package main

import "github.com/mcoot/trivia-go/internal/cli"

func main() {
	cli.Execute()
}
