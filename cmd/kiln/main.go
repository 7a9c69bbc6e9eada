package main

import (
	"github.com/voicetuber/kiln/pkg/cli"
)

func main() {
	cli.Execute()
}
