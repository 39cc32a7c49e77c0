// Package main is the entry point for the leadsheet API server
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ito55/smf-leadsheet-builder/pkg/api"
)

func main() {
	port := flag.Int("port", defaultPort(), "Server port")
	flag.Parse()

	fmt.Printf("Starting leadsheet API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// defaultPort reads PORT from the environment so the binary drops into
// container platforms unchanged; the flag still wins when given.
func defaultPort() int {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			return p
		}
	}
	return 8080
}
