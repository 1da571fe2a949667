package main

import (
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/cmd"
)

// init sets the logging level used until the flags are parsed.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

// main hands control to the cmd package, which parses flags and runs the
// requested check or starts the server.
func main() {
	cmd.Execute()
}
