package main

import "github.com/0xlemi/eartrain/cmd"

func main() {
	cmd.Execute()
}
