// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Hostlink - Hostlink PLC Protocol Tool
//
// A CLI tool for exchanging Hostlink frames with PLCs, decoding line traffic
// and publishing controller status.

package main

import (
	"os"

	"github.com/Thermoquad/hostlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
