package main

import "rfims-upload/cmd"

func main() {
	cmd.Execute()
}
