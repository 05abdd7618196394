package main

import "github.com/vibast-solutions/ms-go-passes/cmd"

func main() {
	cmd.Execute()
}
