package main

import (
	"os"

	"github.com/cryptogauge/cryptogauge/internal/cryptogauge"
)

func main() {
	os.Exit(cryptogauge.Main())
}
