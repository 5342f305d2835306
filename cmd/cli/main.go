package main

import "github.com/depdiscover/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
