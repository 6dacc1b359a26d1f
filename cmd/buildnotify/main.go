// buildnotify sends SMS notifications about finished builds.
//
// Usage:
//
//	buildnotify notify --event build.json
//	buildnotify serve --addr :8080
//	buildnotify validate "+43 660 1234567,+15551234"
//	buildnotify config save --api-key KEY --msisdn +4366000 --password PW --base-url http://ci/
//	buildnotify config show
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
