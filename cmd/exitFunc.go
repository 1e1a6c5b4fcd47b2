package cmd

import "os"

// exitFunc terminates the process with an outcome exit code. Tests swap it
// out to observe the code a delivery would have exited with.
var exitFunc = os.Exit
