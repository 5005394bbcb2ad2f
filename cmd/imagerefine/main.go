package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	// Import for side effects: register all providers via init().
	_ "github.com/kestrel-labs/imagerefine/internal/providers/bedrock"
	_ "github.com/kestrel-labs/imagerefine/internal/providers/mock"
	_ "github.com/kestrel-labs/imagerefine/internal/providers/openai"
	_ "github.com/kestrel-labs/imagerefine/internal/providers/replicate"
)

func main() {
	// Parse with custom exit handler to enforce proper exit codes:
	// 0 = success, 1 = runtime error, 2 = validation/usage error
	ctx := kong.Parse(&CLI,
		kong.Name("imagerefine"),
		kong.Description("Iterative image-refinement search engine"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Exit(func(code int) {
			// Kong uses code 0 for success, non-zero for parse/validation errors.
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	// Run the command - runtime errors exit with 1.
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
