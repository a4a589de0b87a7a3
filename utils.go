package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// fatal prints the error's details then exits the program with an exit
// status of 1.
func fatal(err error) {
	// make sure the error is written to the logger
	logrus.Error(err)
	if !logrusToStderr() {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
