// SPDX-License-Identifier: MPL-2.0

package main

import (
	"github.com/joho/godotenv"

	cmd "github.com/LightSofa/dsd-generator/cmd/dsdgen"
)

func main() {
	// DSDGEN_ overrides may live in a .env file next to the instance.
	_ = godotenv.Load()
	cmd.Execute()
}
