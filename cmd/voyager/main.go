package main

import (
	"github.com/LFroesch/voyager/internal/cli"
	"github.com/LFroesch/voyager/internal/logging"
)

func main() {
	defer logging.Close()
	cli.Execute()
}
