package main

import "anticlaw/cmd"

func main() {
	cmd.Execute()
}
