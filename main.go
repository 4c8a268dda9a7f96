// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// medjc09 - MedJC09 hub client
//
// A CLI tool for querying the MedJC09 measurement hub, streaming its polling
// reports and inspecting the serial protocol.

package main

import (
	"os"

	"github.com/Thermoquad/medjc09/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
