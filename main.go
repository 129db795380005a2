// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/biocycling/efbcheck/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
