// Command warpcheck cross-checks the perspective transforms of a warp
// profile against OpenCV and prints the results.
package main

import (
	"flag"
	"fmt"
	"os"

	"warpcal/internal/settings"
)

func main() {
	profile := flag.String("p", "", "Path to warp profile")
	tolerance := flag.Float64("tol", 1e-4, "Largest accepted matrix entry difference")
	doRender := flag.Bool("render", false, "Also compare rendered pixels")
	flag.Parse()

	if *profile == "" {
		fmt.Println("Usage: warpcheck -p <profile.xml> [-tol 1e-4] [-render]")
		os.Exit(1)
	}

	warps, err := settings.ReadFile(*profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read profile: %v\n", err)
		if len(warps) == 0 {
			os.Exit(1)
		}
	}

	failed := 0
	for i, w := range warps {
		res, err := checkWarp(w, *doRender)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warp %d: %v\n", i+1, err)
			failed++
			continue
		}
		if res.Skipped {
			fmt.Printf("=== Warp %d (%s): no perspective transform ===\n", i+1, w.Kind())
			continue
		}

		fmt.Printf("=== Warp %d (%s) ===\n", i+1, w.Kind())
		fmt.Printf("Matrix difference: %.3g\n", res.MatrixDiff)
		if res.Degenerate {
			fmt.Printf("Degenerate quad: identity in use\n")
		} else if res.Folded {
			fmt.Printf("Warning: quad is not convex\n")
		}
		if *doRender {
			fmt.Printf("Pixels compared: %d\n", res.Pixels)
			fmt.Printf("Mean channel error: %.2f\n", res.MeanError)
		}
		if res.MatrixDiff > *tolerance {
			fmt.Printf("FAIL: difference above %.3g\n", *tolerance)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
