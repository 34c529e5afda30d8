package main

import (
	"github.com/wallet-works/wallet-agent/cmd"
)

func main() {
	cmd.Execute()
}
