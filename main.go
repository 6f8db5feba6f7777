// Package main provides the entry point for flashsim.
// flashsim models the read path of a NAND SSD with in-flash processing:
// a physics-inspired ECC retry model and in-flash GEMV aggregation.
//
// For the real CLIs, use: go run ./cmd/flashsim or go run ./cmd/llmtracegen
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("flashsim - NAND SSD in-flash processing simulator")
	fmt.Println("Built on the Akita simulation framework")
	fmt.Println("")
	fmt.Println("Binaries:")
	fmt.Println("  go run ./cmd/llmtracegen   Generate LLM weight-streaming traces")
	fmt.Println("  go run ./cmd/flashsim      Replay a trace through the IFP read path")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use one of the binaries above instead.")
	}
}
