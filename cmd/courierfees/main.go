package main

import (
	"courier-fees/internal/cli"
)

func main() {
	cli.Execute()
}
