package main

import "github.com/MeKo-Tech/tarot-scan/cmd/tarot-scan/cmd"

func main() {
	cmd.Execute()
}
