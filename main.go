// Command protonbuild builds the Proton SDK native libraries, the crypto
// NuGet package and the staged artifacts the Rust bindings link against.
package main

import "protonbuild/internal/cli"

func main() {
	cli.Execute()
}
