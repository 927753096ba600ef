package main

import (
	"github.com/videodesk-app/videodesk/cmd"
	"github.com/videodesk-app/videodesk/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
