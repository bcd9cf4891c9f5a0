package main

import "github.com/talenthub/performance-management/cmd"

func main() {
	cmd.Execute()
}
