package main

import "github.com/tableclothml/odocsite/cmd"

func main() {
	cmd.Execute()
}
