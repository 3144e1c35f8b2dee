package main

import "github.com/KaramelBytes/fieldlens-cli/cmd"

func main() {
	cmd.Execute()
}
