package main

import "github.com/mvp-joe/tagsgen/internal/cli"

func main() {
	cli.Execute()
}
